package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaurMahima/healthcare-sql-analytics/config"
	"github.com/hashicorp/go-retryablehttp"
)

const MetadataFile = "dataset-metadata.json"

// ErrNotAuthenticated is returned by remote calls made before Authenticate.
var ErrNotAuthenticated = errors.New("kaggle client is not authenticated")

// StatusError is returned when the catalog answers with a non-200 status.
type StatusError struct {
	Description string
	StatusCode  int
	Status      string
	Body        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to fetch the `%s` file, status: %s, body: %s", e.Description, e.Status, e.Body)
}

type KaggleClient struct {
	HTTPClient *retryablehttp.Client
	Logger     *slog.Logger
	BaseURL    string
	ConfigDir  string
	creds      *Credentials
}

func NewKaggleClient(cfg *config.Config, logger *slog.Logger) *KaggleClient {
	client := &KaggleClient{
		HTTPClient: retryablehttp.NewClient(),
		Logger:     logger,
		BaseURL:    strings.TrimRight(cfg.Kaggle.BaseURL, "/"),
		ConfigDir:  cfg.Kaggle.ConfigDir,
	}

	client.HTTPClient.RetryWaitMin = cfg.Extract.Backoff.RetryWaitMin
	client.HTTPClient.RetryWaitMax = cfg.Extract.Backoff.RetryWaitMax
	client.HTTPClient.RetryMax = cfg.Extract.Backoff.RetryMax
	client.HTTPClient.HTTPClient.Timeout = cfg.Extract.Timeout
	client.HTTPClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.HTTPClient.Logger = logger

	return client
}

// Authenticate resolves the Kaggle credentials. It performs no network call.
func (c *KaggleClient) Authenticate(ctx context.Context) error {
	creds, err := LoadCredentials(c.ConfigDir)
	if err != nil {
		return err
	}
	if creds.Insecure {
		c.Logger.Warn("Kaggle credentials file is readable by other users; run chmod 600", "path", creds.Source)
	}
	c.creds = creds
	c.Logger.Debug("Authenticated against Kaggle", "username", creds.Username, "source", creds.Source)
	return nil
}

// ParseDataset splits a catalog identifier of the form owner/slug.
func ParseDataset(dataset string) (owner, slug string, err error) {
	parts := strings.Split(dataset, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid dataset identifier %q: expected owner/slug", dataset)
	}
	return parts[0], parts[1], nil
}

type metadataResponse struct {
	Info         json.RawMessage `json:"info"`
	ErrorMessage string          `json:"errorMessage"`
}

// DatasetMetadata fetches the dataset's metadata and writes it to dir/dataset-metadata.json.
func (c *KaggleClient) DatasetMetadata(ctx context.Context, dataset, dir string) (string, error) {
	owner, slug, err := ParseDataset(dataset)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/datasets/metadata/%s/%s", c.BaseURL, owner, slug)
	body, err := c.FetchData(ctx, url, "metadata for "+dataset)
	if err != nil {
		return "", err
	}

	var resp metadataResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode metadata for %s: %w", dataset, err)
	}
	if resp.ErrorMessage != "" {
		return "", fmt.Errorf("kaggle returned an error for %s: %s", dataset, resp.ErrorMessage)
	}

	info := []byte(resp.Info)
	if len(info) == 0 || string(info) == "null" {
		info = body
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, info, "", "  "); err != nil {
		return "", fmt.Errorf("failed to format metadata for %s: %w", dataset, err)
	}
	pretty.WriteByte('\n')

	path := filepath.Join(dir, MetadataFile)
	if err := os.WriteFile(path, pretty.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	return path, nil
}

// DownloadDatasetFiles downloads the dataset archive into dir, unpacks it and
// removes the archive. A payload that is not a zip archive is kept as-is.
// It returns the paths of the files written.
func (c *KaggleClient) DownloadDatasetFiles(ctx context.Context, dataset, dir string) ([]string, error) {
	owner, slug, err := ParseDataset(dataset)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/datasets/download/%s/%s", c.BaseURL, owner, slug)
	resp, err := c.do(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, "files for "+dataset)
	}

	name := attachmentName(resp.Header.Get("Content-Disposition"), slug+".zip")
	path := filepath.Join(dir, name)
	if err := writeBody(path, resp.Body); err != nil {
		return nil, err
	}

	isZip, err := IsZipFile(path)
	if err != nil {
		return nil, err
	}
	if !isZip {
		return []string{path}, nil
	}

	c.Logger.Debug("Unzipping dataset archive", "archive", path)
	extracted, err := UnzipAll(path, dir)
	if err != nil {
		return extracted, fmt.Errorf("error unzipping %s: %w", name, err)
	}
	if err := os.Remove(path); err != nil {
		return extracted, fmt.Errorf("failed to remove archive %s: %w", path, err)
	}

	return extracted, nil
}

// FetchData handles the common logic of making the HTTP request and checking the response status
func (c *KaggleClient) FetchData(ctx context.Context, url, description string) ([]byte, error) {
	resp, err := c.do(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, description)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

func (c *KaggleClient) do(ctx context.Context, url string) (*http.Response, error) {
	if c.creds == nil {
		return nil, ErrNotAuthenticated
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.creds.Username, c.creds.Key)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func statusError(resp *http.Response, description string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return &StatusError{
		Description: description,
		StatusCode:  resp.StatusCode,
		Status:      resp.Status,
		Body:        strings.TrimSpace(string(body)),
	}
}

// attachmentName returns the base file name from a Content-Disposition
// header, or fallback when absent.
func attachmentName(header, fallback string) string {
	if header == "" {
		return fallback
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return fallback
	}
	name := filepath.Base(params["filename"])
	if name == "" || name == "." || name == "/" || name == ".." {
		return fallback
	}
	return name
}

func writeBody(path string, body io.Reader) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close file %s: %w", path, err)
	}
	return nil
}
