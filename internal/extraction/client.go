package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"facturas/internal/config"
	"facturas/internal/domain"
	"facturas/internal/port"
)

const extractionPrompt = `Extrae los datos de esta factura y devuelve SOLO un objeto JSON con esta forma:
{"invoiceCode": string, "provider": {"name": string, "cif": string}, "issueDate": "YYYY-MM-DD", "totalAmount": number, "ivaPercentage": number, "retentionAmount": number, "items": [{"materialName": string, "materialCode": string, "quantity": number, "listPrice": number|null, "discountPercentage": number|null, "discountRaw": string, "unitPrice": number, "totalPrice": number, "workOrder": string}]}
Usa punto como separador decimal. Si un campo no aparece en la factura, usa null o cadena vacia.`

// Client talks to the external batch extraction service. It implements
// port.ExtractionService.
type Client struct {
	apiKey   string
	model    string
	endpoint string
	markers  []string
	client   *http.Client
}

// NewClient creates an extraction service client from config.
func NewClient(cfg *config.ExtractionConfig) *Client {
	return newClient(cfg, "")
}

// NewClientWithEndpoint creates a client pointing at a custom API endpoint (for testing).
func NewClientWithEndpoint(cfg *config.ExtractionConfig, endpoint string) *Client {
	return newClient(cfg, endpoint)
}

func newClient(cfg *config.ExtractionConfig, endpoint string) *Client {
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	if endpoint == "" {
		endpoint = cfg.BaseURL
	}
	return &Client{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: strings.TrimRight(endpoint, "/"),
		markers:  cfg.RateLimitMarkers,
		client:   &http.Client{Timeout: timeout},
	}
}

type batchRequest struct {
	Request  map[string]interface{} `json:"request"`
	Metadata map[string]string      `json:"metadata"`
}

type submitResponse struct {
	Name string `json:"name"`
}

// statusResponse models the service's job resource.
type statusResponse struct {
	Name     string `json:"name"`
	Metadata struct {
		State      string `json:"state"`
		BatchStats struct {
			RequestCount           *int `json:"requestCount"`
			CompletedRequestCount  *int `json:"completedRequestCount"`
			SuccessfulRequestCount *int `json:"successfulRequestCount"`
			FailedRequestCount     *int `json:"failedRequestCount"`
		} `json:"batchStats"`
	} `json:"metadata"`
	Response struct {
		ResponsesFile string `json:"responsesFile"`
	} `json:"response"`
}

// Submit dispatches one chunk of invoice PDFs as a single batch job and
// returns the opaque job handle.
func (c *Client) Submit(ctx context.Context, files []domain.SubmittedFile) (string, error) {
	if len(files) == 0 {
		return "", domain.ErrNoFiles
	}

	requests := make([]batchRequest, 0, len(files))
	for _, f := range files {
		requests = append(requests, batchRequest{
			Request: map[string]interface{}{
				"contents": []map[string]interface{}{
					{
						"role": "user",
						"parts": []map[string]interface{}{
							{
								"inline_data": map[string]interface{}{
									"mime_type": f.ContentType,
									"data":      base64.StdEncoding.EncodeToString(f.Data),
								},
							},
							{
								"text": extractionPrompt,
							},
						},
					},
				},
			},
			Metadata: map[string]string{"key": f.Name},
		})
	}

	reqBody := map[string]interface{}{
		"batch": map[string]interface{}{
			"displayName": fmt.Sprintf("facturas-%d", time.Now().Unix()),
			"inputConfig": map[string]interface{}{
				"requests": map[string]interface{}{"requests": requests},
			},
		},
	}

	url := fmt.Sprintf("%s/models/%s:batchGenerateContent", c.endpoint, c.model)
	body, err := c.post(ctx, url, reqBody)
	if err != nil {
		return "", err
	}

	var resp submitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshaling submit response: %w", err)
	}
	if resp.Name == "" {
		return "", fmt.Errorf("submit response missing job name")
	}
	return resp.Name, nil
}

// GetStatus polls the job handle and maps the service's state vocabulary
// onto the batch status enum.
func (c *Client) GetStatus(ctx context.Context, jobRef string) (*port.JobStatus, error) {
	url := fmt.Sprintf("%s/%s", c.endpoint, jobRef)
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var resp statusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling status response: %w", err)
	}

	status := &port.JobStatus{
		State:           MapJobState(resp.Metadata.State),
		ProcessedFiles:  -1,
		SuccessfulFiles: -1,
		FailedFiles:     -1,
		OutputRef:       resp.Response.ResponsesFile,
	}
	if v := resp.Metadata.BatchStats.CompletedRequestCount; v != nil {
		status.ProcessedFiles = *v
	}
	if v := resp.Metadata.BatchStats.SuccessfulRequestCount; v != nil {
		status.SuccessfulFiles = *v
	}
	if v := resp.Metadata.BatchStats.FailedRequestCount; v != nil {
		status.FailedFiles = *v
	}
	return status, nil
}

// ReadOutput streams the newline-delimited result blob.
func (c *Client) ReadOutput(ctx context.Context, outputRef string) (io.ReadCloser, error) {
	url := fmt.Sprintf("%s/%s:download?alt=media", c.endpoint, outputRef)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading job output: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(resp.Body)
		return nil, c.statusError(resp, body)
	}
	return resp.Body, nil
}

// MapJobState maps the external state vocabulary onto the five-state enum.
// Expiry before producing output counts as cancellation: no ingest happens.
func MapJobState(state string) domain.BatchStatus {
	switch strings.TrimPrefix(state, "BATCH_STATE_") {
	case "PENDING", "VALIDATING":
		return domain.BatchStatusPending
	case "RUNNING", "PROCESSING":
		return domain.BatchStatusProcessing
	case "SUCCEEDED":
		return domain.BatchStatusCompleted
	case "FAILED":
		return domain.BatchStatusFailed
	case "CANCELLED", "EXPIRED":
		return domain.BatchStatusCancelled
	default:
		return domain.BatchStatusProcessing
	}
}

func (c *Client) post(ctx context.Context, url string, reqBody interface{}) ([]byte, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	return c.do(req)
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling extraction service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp, body)
	}
	return body, nil
}

func (c *Client) statusError(resp *http.Response, body []byte) error {
	err := fmt.Errorf("extraction service error (status %d): %s", resp.StatusCode, truncate(string(body), 500))
	if resp.StatusCode == http.StatusTooManyRequests || IsTransient(err, c.markers) {
		return NewRateLimitError(err, ParseRetryAfterHeader(resp.Header.Get("Retry-After")))
	}
	return err
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
