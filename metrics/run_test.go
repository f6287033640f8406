package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/KaurMahima/healthcare-sql-analytics/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

func gatherValues(t *testing.T, m *RunMetrics) map[string]float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, mf := range families {
		require.Len(t, mf.GetMetric(), 1)
		metric := mf.GetMetric()[0]
		require.Len(t, metric.GetLabel(), 1)
		assert.Equal(t, "stage", metric.GetLabel()[0].GetName())
		values[mf.GetName()] = metric.GetGauge().GetValue()
	}
	return values
}

func TestRunMetrics_Finish(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected float64
	}{
		{name: "success", err: nil, expected: 1},
		{name: "failure", err: errors.New("boom"), expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewRunMetrics("acquire", utils.FixedTimeProvider{T: fixedTime})
			m.SetFilesAcquired(2)
			m.Finish(tt.err)

			values := gatherValues(t, m)
			assert.Equal(t, tt.expected, values["healthcare_pipeline_last_run_success"])
			assert.Equal(t, float64(fixedTime.Unix()), values["healthcare_pipeline_last_run_timestamp_seconds"])
			assert.Equal(t, float64(2), values["healthcare_pipeline_files_acquired"])
			assert.Equal(t, float64(0), values["healthcare_pipeline_rows_loaded"])
		})
	}
}

func TestRunMetrics_WriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "materialize.prom")

	m := NewRunMetrics("materialize", utils.FixedTimeProvider{T: fixedTime})
	m.SetRowsLoaded(55500)
	m.Finish(nil)
	require.NoError(t, m.WriteTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `healthcare_pipeline_rows_loaded{stage="materialize"} 55500`)
	assert.Contains(t, string(content), `healthcare_pipeline_last_run_success{stage="materialize"} 1`)
	assert.Contains(t, string(content), "# HELP healthcare_pipeline_last_run_timestamp_seconds")
}

func TestRunMetrics_WriteTextfileDisabled(t *testing.T) {
	m := NewRunMetrics("acquire", nil)
	assert.NoError(t, m.WriteTextfile(""))
}

func TestRunMetrics_WriteTextfileBadPath(t *testing.T) {
	m := NewRunMetrics("acquire", nil)
	err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "acquire.prom"))
	assert.ErrorContains(t, err, "error writing acquire metrics")
}
