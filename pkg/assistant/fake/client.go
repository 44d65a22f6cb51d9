// Package fake provides a scripted in-memory assistant for tests and local runs.
package fake

import (
	"context"
	"fmt"
	"sync"

	"doc-review-be/pkg/assistant"
)

// Reply scripts the outcome of one run.
type Reply struct {
	// Messages are the assistant messages the run produces. A run may
	// produce several.
	Messages []string
	Usage    *assistant.Usage
	// Polls is how many GetRun calls report in_progress before the run
	// reaches its final status.
	Polls int
	// Status overrides the final status; completed when empty.
	Status assistant.RunStatus
	// Err fails CreateRun.
	Err error
}

type run struct {
	run       assistant.Run
	reply     Reply
	remaining int
	delivered bool
}

type Client struct {
	mu sync.Mutex

	// Responder, when set, computes the reply for a prompt. The queued
	// script takes precedence.
	Responder func(assistantID, prompt string) Reply

	script   []Reply
	threads  map[string][]assistant.Message
	runs     map[string]*run
	corpora  map[string]string
	files    map[string]map[string][]byte
	bindings map[string]string
	lastUser map[string]string
	seq      int

	Threads     int
	Runs        int
	Posted      []string
	Deleted     []string
	IngestCalls int
}

var _ assistant.Client = &Client{}

func New(replies ...Reply) *Client {
	return &Client{
		script:   replies,
		threads:  make(map[string][]assistant.Message),
		runs:     make(map[string]*run),
		corpora:  make(map[string]string),
		files:    make(map[string]map[string][]byte),
		bindings: make(map[string]string),
		lastUser: make(map[string]string),
	}
}

// Enqueue appends replies to the script.
func (c *Client) Enqueue(replies ...Reply) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.script = append(c.script, replies...)
}

// Bindings returns assistant id -> corpus id for every tool binding update.
func (c *Client) Bindings() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.bindings))
	for k, v := range c.bindings {
		out[k] = v
	}
	return out
}

// Files returns the corpus documents keyed by remote file id.
func (c *Client) Files(corpusID string) map[string][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][]byte)
	for k, v := range c.files[corpusID] {
		out[k] = v
	}
	return out
}

func (c *Client) nextID(prefix string) string {
	c.seq++
	return fmt.Sprintf("%s_%d", prefix, c.seq)
}

func (c *Client) CreateThread(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID("thread")
	c.threads[id] = nil
	c.Threads++
	return id, nil
}

func (c *Client) PostMessage(ctx context.Context, threadID, role, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.threads[threadID]; !ok {
		return &assistant.APIError{StatusCode: 404, Message: "no such thread"}
	}
	c.threads[threadID] = append(c.threads[threadID], assistant.Message{
		ID:      c.nextID("msg"),
		Role:    role,
		Content: content,
	})
	c.Posted = append(c.Posted, content)
	c.lastUser[threadID] = content
	return nil
}

func (c *Client) CreateRun(ctx context.Context, threadID, assistantID string) (*assistant.Run, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.threads[threadID]; !ok {
		return nil, &assistant.APIError{StatusCode: 404, Message: "no such thread"}
	}

	var reply Reply
	switch {
	case len(c.script) > 0:
		reply = c.script[0]
		c.script = c.script[1:]
	case c.Responder != nil:
		reply = c.Responder(assistantID, c.lastUser[threadID])
	}
	if reply.Err != nil {
		return nil, reply.Err
	}

	c.Runs++
	r := &run{
		run:       assistant.Run{ID: c.nextID("run"), ThreadID: threadID, Status: assistant.RunStatusQueued},
		reply:     reply,
		remaining: reply.Polls,
	}
	c.runs[r.run.ID] = r
	out := r.run
	return &out, nil
}

func (c *Client) GetRun(ctx context.Context, threadID, runID string) (*assistant.Run, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.runs[runID]
	if !ok || r.run.ThreadID != threadID {
		return nil, &assistant.APIError{StatusCode: 404, Message: "no such run"}
	}

	if r.remaining > 0 {
		r.remaining--
		r.run.Status = assistant.RunStatusInProgress
	} else {
		r.run.Status = r.reply.Status
		if r.run.Status == "" {
			r.run.Status = assistant.RunStatusCompleted
		}
		if r.run.Status == assistant.RunStatusCompleted && !r.delivered {
			r.delivered = true
			r.run.Usage = r.reply.Usage
			for _, text := range r.reply.Messages {
				c.threads[threadID] = append(c.threads[threadID], assistant.Message{
					ID:      c.nextID("msg"),
					RunID:   runID,
					Role:    "assistant",
					Content: text,
				})
			}
		}
	}
	out := r.run
	return &out, nil
}

func (c *Client) ListMessages(ctx context.Context, threadID, after string) ([]assistant.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs, ok := c.threads[threadID]
	if !ok {
		return nil, &assistant.APIError{StatusCode: 404, Message: "no such thread"}
	}

	start := 0
	if after != "" {
		for i, m := range msgs {
			if m.ID == after {
				start = i + 1
				break
			}
		}
	}
	out := make([]assistant.Message, len(msgs)-start)
	copy(out, msgs[start:])
	return out, nil
}

func (c *Client) CreateOrFindCorpus(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.corpora[name]; ok {
		return id, nil
	}
	id := c.nextID("vs")
	c.corpora[name] = id
	c.files[id] = make(map[string][]byte)
	return id, nil
}

func (c *Client) IngestDocument(ctx context.Context, corpusID, fileName string, content []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	files, ok := c.files[corpusID]
	if !ok {
		return "", &assistant.APIError{StatusCode: 404, Message: "no such vector store"}
	}
	c.IngestCalls++
	id := c.nextID("file")
	files[id] = content
	return id, nil
}

func (c *Client) DeleteFromCorpus(ctx context.Context, corpusID, remoteFileID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	files, ok := c.files[corpusID]
	if !ok {
		return &assistant.APIError{StatusCode: 404, Message: "no such vector store"}
	}
	delete(files, remoteFileID)
	c.Deleted = append(c.Deleted, remoteFileID)
	return nil
}

func (c *Client) UpdateAssistantToolBinding(ctx context.Context, assistantID, corpusID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings[assistantID] = corpusID
	return nil
}
