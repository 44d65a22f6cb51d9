// Package documents binds uploaded files into the assistants' searchable
// corpus and releases them again.
package documents

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"doc-review-be/internal/pkg/logger"
	"doc-review-be/pkg/assistant"
	"doc-review-be/pkg/review/binding"
	"doc-review-be/pkg/review/gateway"
	"doc-review-be/pkg/storage"
	"doc-review-be/pkg/store"
)

const module = "DocumentManager"

var (
	ErrUnknownDocument = errors.New("document was never uploaded in this session")
	ErrNoContent       = errors.New("document has no staged content")
)

type Config struct {
	CorpusName string
	// ChangeNotice is sent silently after a document was bound.
	ChangeNotice string
	// Assistants whose tool binding is pointed at the corpus after ingest.
	Assistants map[string]string
	// DefaultPersona receives the change notice while no assistant has
	// answered in the session yet.
	DefaultPersona string
}

type Manager struct {
	client assistant.Client
	sender gateway.Sender
	files  storage.FileStore
	logger logger.ILogger
	cfg    Config

	mu       sync.Mutex
	corpusID string
}

func NewManager(client assistant.Client, sender gateway.Sender, files storage.FileStore, log logger.ILogger, cfg Config) *Manager {
	return &Manager{
		client: client,
		sender: sender,
		files:  files,
		logger: log,
		cfg:    cfg,
	}
}

// Stage registers an upload as unbound. Uploading the same name again
// replaces the staged bytes.
func (m *Manager) Stage(sess *store.Session, fileName string, content []byte) binding.Binding {
	sess.Documents.Stage(fileName, content)
	b, _ := sess.Documents.Get(fileName)
	return b
}

// Toggle flips the binding of fileName. Newly supplied content is staged
// first. It returns the binding state after the toggle.
func (m *Manager) Toggle(ctx context.Context, sess *store.Session, fileName string, content []byte) (binding.State, error) {
	if len(content) > 0 {
		sess.Documents.Stage(fileName, content)
	}
	b, ok := sess.Documents.Get(fileName)
	if !ok {
		return "", ErrUnknownDocument
	}

	if b.State == binding.StateBound {
		return m.unbind(ctx, sess, b)
	}
	return m.bind(ctx, sess, fileName)
}

// Corpus returns the id of the shared corpus, creating it on first use.
func (m *Manager) Corpus(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.corpusID != "" {
		return m.corpusID, nil
	}
	id, err := m.client.CreateOrFindCorpus(ctx, m.cfg.CorpusName)
	if err != nil {
		return "", fmt.Errorf("resolve corpus: %w", err)
	}
	m.corpusID = id
	return id, nil
}

func (m *Manager) bind(ctx context.Context, sess *store.Session, fileName string) (binding.State, error) {
	content := sess.Documents.Staged(fileName)
	if len(content) == 0 {
		return binding.StateUnbound, ErrNoContent
	}

	if m.files != nil {
		if err := m.files.Put(ctx, storage.Key(sess.ID, fileName), content, "application/octet-stream"); err != nil {
			return binding.StateUnbound, fmt.Errorf("persist document: %w", err)
		}
	}

	corpusID, err := m.Corpus(ctx)
	if err != nil {
		return binding.StateUnbound, err
	}

	remoteID, err := m.client.IngestDocument(ctx, corpusID, fileName, content)
	if err != nil {
		return binding.StateUnbound, fmt.Errorf("ingest document: %w", err)
	}
	sess.Documents.MarkBound(fileName, remoteID)

	for _, persona := range sortedKeys(m.cfg.Assistants) {
		assistantID := m.cfg.Assistants[persona]
		if assistantID == "" {
			continue
		}
		if err := m.client.UpdateAssistantToolBinding(ctx, assistantID, corpusID); err != nil {
			return binding.StateBound, fmt.Errorf("bind corpus to assistant %s: %w", persona, err)
		}
	}

	m.logger.Info(module, "Document bound", map[string]interface{}{
		"session_id": sess.ID,
		"file":       fileName,
		"remote_id":  remoteID,
	})

	target := sess.ActiveAssistant()
	if target == "" {
		target = m.cfg.Assistants[m.cfg.DefaultPersona]
	}
	if m.cfg.ChangeNotice != "" && target != "" {
		if _, err := m.sender.SendTurn(ctx, sess, m.cfg.ChangeNotice, gateway.WithAssistant(target), gateway.Silent()); err != nil {
			return binding.StateBound, fmt.Errorf("notify assistant: %w", err)
		}
	}
	return binding.StateBound, nil
}

func (m *Manager) unbind(ctx context.Context, sess *store.Session, b binding.Binding) (binding.State, error) {
	if b.RemoteFileID != "" {
		corpusID, err := m.Corpus(ctx)
		if err != nil {
			return binding.StateBound, err
		}
		if err := m.client.DeleteFromCorpus(ctx, corpusID, b.RemoteFileID); err != nil {
			return binding.StateBound, fmt.Errorf("remove document from corpus: %w", err)
		}
	}
	prev := sess.Documents.MarkUnbound(b.FileName)

	m.logger.Info(module, "Document unbound", map[string]interface{}{
		"session_id": sess.ID,
		"file":       b.FileName,
		"remote_id":  prev,
	})
	return binding.StateUnbound, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
