package azure

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"doc-review-be/pkg/assistant"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		Endpoint:       srv.URL,
		APIKey:         "secret",
		APIVersion:     "2024-05-01-preview",
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	})
}

func TestClient_CreateThreadSendsAuthAndVersion(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/openai/threads", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		assert.Equal(t, "2024-05-01-preview", r.URL.Query().Get("api-version"))
		_, _ = w.Write([]byte(`{"id":"thread_1"}`))
	})

	id, err := client.CreateThread(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "thread_1", id)
}

func TestClient_RunStatusAndUsage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/threads/thread_1/runs/run_1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"run_1","thread_id":"thread_1","status":"completed","usage":{"prompt_tokens":100,"completion_tokens":50,"total_tokens":150}}`))
	})

	run, err := client.GetRun(context.Background(), "thread_1", "run_1")
	require.NoError(t, err)
	assert.Equal(t, assistant.RunStatusCompleted, run.Status)
	require.NotNil(t, run.Usage)
	assert.Equal(t, 100, run.Usage.PromptTokens)
	assert.Equal(t, 50, run.Usage.CompletionTokens)
}

func TestClient_RunWithoutUsage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"run_1","status":"in_progress","usage":null}`))
	})

	run, err := client.GetRun(context.Background(), "thread_1", "run_1")
	require.NoError(t, err)
	assert.Nil(t, run.Usage)
	assert.Equal(t, "thread_1", run.ThreadID)
}

func TestClient_ListMessagesPaginatesAfterWatermark(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "asc", q.Get("order"))
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			assert.Equal(t, "msg_0", q.Get("after"))
			_, _ = w.Write([]byte(`{"data":[{"id":"msg_1","role":"user","content":[{"type":"text","text":{"value":"hi"}}]}],"has_more":true}`))
		default:
			assert.Equal(t, "msg_1", q.Get("after"))
			_, _ = w.Write([]byte(`{"data":[{"id":"msg_2","role":"assistant","run_id":"run_1","content":[{"type":"text","text":{"value":"i.O"}}]}],"has_more":false}`))
		}
	})

	msgs, err := client.ListMessages(context.Background(), "thread_1", "msg_0")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, assistant.Message{ID: "msg_2", RunID: "run_1", Role: "assistant", Content: "i.O"}, msgs[1])
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	tests := []struct {
		name      string
		failures  int32
		status    int
		wantErr   bool
		wantCalls int32
	}{
		{name: "recovers after 503", failures: 2, status: http.StatusServiceUnavailable, wantCalls: 3},
		{name: "gives up after retry budget", failures: 10, status: http.StatusTooManyRequests, wantErr: true, wantCalls: 3},
		{name: "does not retry 400", failures: 10, status: http.StatusBadRequest, wantErr: true, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if atomic.AddInt32(&calls, 1) <= tt.failures {
					w.WriteHeader(tt.status)
					_, _ = w.Write([]byte(`{"error":{"code":"x","message":"nope"}}`))
					return
				}
				_, _ = w.Write([]byte(`{"id":"thread_1"}`))
			})

			_, err := client.CreateThread(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				var apiErr *assistant.APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, tt.status, apiErr.StatusCode)
				assert.Equal(t, "nope", apiErr.Message)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestClient_CreateOrFindCorpus(t *testing.T) {
	t.Run("finds existing store by name", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			_, _ = w.Write([]byte(`{"data":[{"id":"vs_other","name":"other"},{"id":"vs_1","name":"dokument review"}],"has_more":false}`))
		})
		id, err := client.CreateOrFindCorpus(context.Background(), "dokument review")
		require.NoError(t, err)
		assert.Equal(t, "vs_1", id)
	})

	t.Run("creates store when missing", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				_, _ = w.Write([]byte(`{"data":[],"has_more":false}`))
				return
			}
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "dokument review", body["name"])
			_, _ = w.Write([]byte(`{"id":"vs_new"}`))
		})
		id, err := client.CreateOrFindCorpus(context.Background(), "dokument review")
		require.NoError(t, err)
		assert.Equal(t, "vs_new", id)
	})
}

func TestClient_IngestDocument(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/openai/files":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "assistants", r.FormValue("purpose"))
			f, hdr, err := r.FormFile("file")
			require.NoError(t, err)
			defer f.Close()
			data, _ := io.ReadAll(f)
			assert.Equal(t, "spec.docx", hdr.Filename)
			assert.Equal(t, "content", string(data))
			_, _ = w.Write([]byte(`{"id":"file_1"}`))
		case "/openai/vector_stores/vs_1/file_batches":
			var body fileBatchRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, []string{"file_1"}, body.FileIDs)
			_, _ = w.Write([]byte(`{"id":"batch_1","status":"in_progress"}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	id, err := client.IngestDocument(context.Background(), "vs_1", "spec.docx", []byte("content"))
	require.NoError(t, err)
	assert.Equal(t, "file_1", id)
}

func TestClient_UpdateAssistantToolBinding(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/assistants/asst_1", r.URL.Path)
		var body updateAssistantRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"vs_1"}, body.ToolResources.FileSearch.VectorStoreIDs)
		_, _ = w.Write([]byte(`{"id":"asst_1"}`))
	})

	require.NoError(t, client.UpdateAssistantToolBinding(context.Background(), "asst_1", "vs_1"))
}

func TestClient_DeleteFromCorpus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/openai/vector_stores/vs_1/files/file_1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"file_1","deleted":true}`))
	})

	require.NoError(t, client.DeleteFromCorpus(context.Background(), "vs_1", "file_1"))
}

func TestClient_RetryPolicyPerOperation(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		call      func(*Client) error
		wantCalls int32
	}{
		{
			name:   "message post is not repeated after 503",
			status: http.StatusServiceUnavailable,
			call: func(c *Client) error {
				return c.PostMessage(context.Background(), "thread_1", "user", "hi")
			},
			wantCalls: 1,
		},
		{
			name:   "run start is not repeated after 500",
			status: http.StatusInternalServerError,
			call: func(c *Client) error {
				_, err := c.CreateRun(context.Background(), "thread_1", "asst_1")
				return err
			},
			wantCalls: 1,
		},
		{
			name:   "message post retries on 429",
			status: http.StatusTooManyRequests,
			call: func(c *Client) error {
				return c.PostMessage(context.Background(), "thread_1", "user", "hi")
			},
			wantCalls: 3,
		},
		{
			name:   "run status read retries on 503",
			status: http.StatusServiceUnavailable,
			call: func(c *Client) error {
				_, err := c.GetRun(context.Background(), "thread_1", "run_1")
				return err
			},
			wantCalls: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"code":"x","message":"nope"}}`))
			})

			err := tt.call(client)
			require.Error(t, err)
			var apiErr *assistant.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestClient_ZeroMaxRetriesMakesOneAttempt(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	client := NewClient(Config{
		Endpoint:       srv.URL,
		APIKey:         "secret",
		APIVersion:     "2024-05-01-preview",
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	})

	_, err := client.CreateThread(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
