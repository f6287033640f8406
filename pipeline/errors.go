package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/url"
	"strings"

	"github.com/KaurMahima/healthcare-sql-analytics/extract"
)

// Kind classifies a stage failure.
type Kind int

const (
	KindUnexpected Kind = iota
	KindConfiguration
	KindRemote
	KindMissingInput
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration error"
	case KindRemote:
		return "remote error"
	case KindMissingInput:
		return "missing input"
	default:
		return "unexpected error"
	}
}

// StageError is a classified failure of a single pipeline step.
type StageError struct {
	Stage string
	Op    string
	Kind  Kind
	Err   error
	Hints []string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Stage, e.Op, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first StageError in err's chain.
func KindOf(err error) Kind {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Kind
	}
	return KindUnexpected
}

// Category names the class of the underlying failure, e.g. "HTTP 404" or "network".
func Category(err error) string {
	var statusErr *extract.StatusError
	var pathErr *fs.PathError
	var opErr *net.OpError
	var dnsErr *net.DNSError
	var urlErr *url.Error
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, extract.ErrCredentialsNotFound):
		return "missing credentials"
	case errors.As(err, &statusErr):
		return fmt.Sprintf("HTTP %d", statusErr.StatusCode)
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &pathErr):
		return "filesystem"
	case errors.As(err, &opErr), errors.As(err, &dnsErr), errors.As(err, &urlErr):
		return "network"
	default:
		return "other"
	}
}

// WriteDiagnostic writes a human readable report of err to w. Classified
// errors get the failed operation, the cause and a checklist of likely causes.
func WriteDiagnostic(w io.Writer, err error) {
	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		fmt.Fprintf(w, "ERROR: %v\n", err)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ERROR: %s failed during %s\n", stageErr.Op, stageErr.Stage)
	fmt.Fprintf(&b, "  kind:     %s\n", stageErr.Kind)
	fmt.Fprintf(&b, "  category: %s\n", Category(stageErr.Err))
	fmt.Fprintf(&b, "  message:  %v\n", stageErr.Err)
	if len(stageErr.Hints) > 0 {
		b.WriteString("Possible causes:\n")
		for _, hint := range stageErr.Hints {
			fmt.Fprintf(&b, "  - %s\n", hint)
		}
	}
	io.WriteString(w, b.String())
}
