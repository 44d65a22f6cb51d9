package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"doc-review-be/pkg/assistant"

	"github.com/cenkalti/backoff/v5"
)

const listPageSize = 100

type Config struct {
	Endpoint       string
	APIKey         string
	APIVersion     string
	RequestTimeout time.Duration
	// MaxRetries is the number of retries after the first attempt. 0 disables
	// retrying.
	MaxRetries     uint
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Client talks to the Azure OpenAI Assistants REST API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

var _ assistant.Client = &Client{}

func NewClient(cfg Config) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
	}
}

// --- Wire types (internal to this package) ---

type idResponse struct {
	ID string `json:"id"`
}

type createMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type createRunRequest struct {
	AssistantID string `json:"assistant_id"`
}

type runResponse struct {
	ID       string           `json:"id"`
	ThreadID string           `json:"thread_id"`
	Status   string           `json:"status"`
	Usage    *assistant.Usage `json:"usage"`
}

type messageResponse struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	RunID   string `json:"run_id"`
	Content []struct {
		Type string `json:"type"`
		Text *struct {
			Value string `json:"value"`
		} `json:"text,omitempty"`
	} `json:"content"`
}

type messageListResponse struct {
	Data    []messageResponse `json:"data"`
	LastID  string            `json:"last_id"`
	HasMore bool              `json:"has_more"`
}

type vectorStoreListResponse struct {
	Data []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"data"`
	LastID  string `json:"last_id"`
	HasMore bool   `json:"has_more"`
}

type createVectorStoreRequest struct {
	Name string `json:"name"`
}

type fileBatchRequest struct {
	FileIDs []string `json:"file_ids"`
}

type toolResources struct {
	FileSearch struct {
		VectorStoreIDs []string `json:"vector_store_ids"`
	} `json:"file_search"`
}

type updateAssistantRequest struct {
	ToolResources toolResources `json:"tool_resources"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Interface Implementation ---

func (c *Client) CreateThread(ctx context.Context) (string, error) {
	var resp idResponse
	if err := c.doJSON(ctx, retryTransient, http.MethodPost, "/threads", nil, struct{}{}, &resp); err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return resp.ID, nil
}

func (c *Client) PostMessage(ctx context.Context, threadID, role, content string) error {
	body := createMessageRequest{Role: role, Content: content}
	if err := c.doJSON(ctx, retryThrottled, http.MethodPost, "/threads/"+url.PathEscape(threadID)+"/messages", nil, body, nil); err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	return nil
}

func (c *Client) CreateRun(ctx context.Context, threadID, assistantID string) (*assistant.Run, error) {
	var resp runResponse
	body := createRunRequest{AssistantID: assistantID}
	if err := c.doJSON(ctx, retryThrottled, http.MethodPost, "/threads/"+url.PathEscape(threadID)+"/runs", nil, body, &resp); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return resp.toRun(threadID), nil
}

func (c *Client) GetRun(ctx context.Context, threadID, runID string) (*assistant.Run, error) {
	var resp runResponse
	path := "/threads/" + url.PathEscape(threadID) + "/runs/" + url.PathEscape(runID)
	if err := c.doJSON(ctx, retryTransient, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return resp.toRun(threadID), nil
}

func (c *Client) ListMessages(ctx context.Context, threadID, after string) ([]assistant.Message, error) {
	var out []assistant.Message
	cursor := after
	for {
		q := url.Values{}
		q.Set("order", "asc")
		q.Set("limit", fmt.Sprint(listPageSize))
		if cursor != "" {
			q.Set("after", cursor)
		}

		var page messageListResponse
		if err := c.doJSON(ctx, retryTransient, http.MethodGet, "/threads/"+url.PathEscape(threadID)+"/messages", q, nil, &page); err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		for _, m := range page.Data {
			out = append(out, m.toMessage())
		}
		if !page.HasMore || len(page.Data) == 0 {
			return out, nil
		}
		cursor = page.Data[len(page.Data)-1].ID
	}
}

func (c *Client) CreateOrFindCorpus(ctx context.Context, name string) (string, error) {
	cursor := ""
	for {
		q := url.Values{}
		q.Set("limit", fmt.Sprint(listPageSize))
		if cursor != "" {
			q.Set("after", cursor)
		}

		var page vectorStoreListResponse
		if err := c.doJSON(ctx, retryTransient, http.MethodGet, "/vector_stores", q, nil, &page); err != nil {
			return "", fmt.Errorf("list vector stores: %w", err)
		}
		for _, vs := range page.Data {
			if vs.Name == name {
				return vs.ID, nil
			}
		}
		if !page.HasMore || len(page.Data) == 0 {
			break
		}
		cursor = page.Data[len(page.Data)-1].ID
	}

	var created idResponse
	if err := c.doJSON(ctx, retryThrottled, http.MethodPost, "/vector_stores", nil, createVectorStoreRequest{Name: name}, &created); err != nil {
		return "", fmt.Errorf("create vector store: %w", err)
	}
	return created.ID, nil
}

func (c *Client) IngestDocument(ctx context.Context, corpusID, fileName string, content []byte) (string, error) {
	fileID, err := c.uploadFile(ctx, fileName, content)
	if err != nil {
		return "", err
	}

	body := fileBatchRequest{FileIDs: []string{fileID}}
	if err := c.doJSON(ctx, retryTransient, http.MethodPost, "/vector_stores/"+url.PathEscape(corpusID)+"/file_batches", nil, body, nil); err != nil {
		return "", fmt.Errorf("add file to vector store: %w", err)
	}
	return fileID, nil
}

func (c *Client) DeleteFromCorpus(ctx context.Context, corpusID, remoteFileID string) error {
	path := "/vector_stores/" + url.PathEscape(corpusID) + "/files/" + url.PathEscape(remoteFileID)
	if err := c.doJSON(ctx, retryTransient, http.MethodDelete, path, nil, nil, nil); err != nil {
		return fmt.Errorf("delete vector store file: %w", err)
	}
	return nil
}

func (c *Client) UpdateAssistantToolBinding(ctx context.Context, assistantID, corpusID string) error {
	var body updateAssistantRequest
	body.ToolResources.FileSearch.VectorStoreIDs = []string{corpusID}
	if err := c.doJSON(ctx, retryTransient, http.MethodPost, "/assistants/"+url.PathEscape(assistantID), nil, body, nil); err != nil {
		return fmt.Errorf("update assistant tool resources: %w", err)
	}
	return nil
}

// --- Transport ---

func (c *Client) uploadFile(ctx context.Context, fileName string, content []byte) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("purpose", "assistants"); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}

	var resp idResponse
	payload := buf.Bytes()
	err = c.send(ctx, retryThrottled, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/files", nil), bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		return req, nil
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("upload file: %w", err)
	}
	return resp.ID, nil
}

func (c *Client) url(path string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api-version", c.cfg.APIVersion)
	return strings.TrimRight(c.cfg.Endpoint, "/") + "/openai" + path + "?" + query.Encode()
}

func (c *Client) doJSON(ctx context.Context, policy retryPolicy, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	target := c.url(path, query)
	return c.send(ctx, policy, func() (*http.Request, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	}, out)
}

type retryPolicy int

const (
	// retryTransient retries network failures and every transient status.
	retryTransient retryPolicy = iota
	// retryThrottled only retries 429. Message posts, run starts and uploads
	// must not be repeated once the server may have applied them.
	retryThrottled
)

func (p retryPolicy) retries(err *assistant.APIError) bool {
	if p == retryThrottled {
		return err.StatusCode == http.StatusTooManyRequests
	}
	return err.Transient()
}

// send executes the request with exponential backoff according to policy.
func (c *Client) send(ctx context.Context, policy retryPolicy, build func() (*http.Request, error), out any) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialBackoff
	b.MaxInterval = c.cfg.MaxBackoff

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		req, err := build()
		if err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("api-key", c.cfg.APIKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return struct{}{}, backoff.Permanent(ctx.Err())
			}
			if policy == retryThrottled {
				return struct{}{}, backoff.Permanent(fmt.Errorf("assistant request failed: %w", err))
			}
			return struct{}{}, fmt.Errorf("assistant request failed: %w", err)
		}
		defer resp.Body.Close()

		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return struct{}{}, fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := parseAPIError(resp.StatusCode, bodyBytes)
			if policy.retries(apiErr) {
				return struct{}{}, apiErr
			}
			return struct{}{}, backoff.Permanent(apiErr)
		}

		if out != nil && len(bodyBytes) > 0 {
			if err := json.Unmarshal(bodyBytes, out); err != nil {
				return struct{}{}, backoff.Permanent(fmt.Errorf("unmarshal response: %w", err))
			}
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(c.cfg.MaxRetries+1))

	return err
}

func parseAPIError(status int, body []byte) *assistant.APIError {
	apiErr := &assistant.APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
	}
	return apiErr
}

// IsTransient reports whether err is a retryable assistant failure that
// exhausted its retry budget.
func IsTransient(err error) bool {
	var apiErr *assistant.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	return false
}

func (r runResponse) toRun(threadID string) *assistant.Run {
	if r.ThreadID != "" {
		threadID = r.ThreadID
	}
	return &assistant.Run{
		ID:       r.ID,
		ThreadID: threadID,
		Status:   assistant.RunStatus(r.Status),
		Usage:    r.Usage,
	}
}

func (m messageResponse) toMessage() assistant.Message {
	msg := assistant.Message{ID: m.ID, RunID: m.RunID, Role: m.Role}
	for _, part := range m.Content {
		if part.Type == "text" && part.Text != nil {
			msg.Content = part.Text.Value
			break
		}
	}
	return msg
}
