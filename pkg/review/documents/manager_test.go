package documents

import (
	"context"
	"testing"
	"time"

	"doc-review-be/internal/pkg/logger"
	"doc-review-be/pkg/assistant/fake"
	"doc-review-be/pkg/review/binding"
	"doc-review-be/pkg/review/criteria"
	"doc-review-be/pkg/review/gateway"
	"doc-review-be/pkg/review/usage"
	"doc-review-be/pkg/storage"
	"doc-review-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const notice = "Review-Dokument ist geändert"

func setup(t *testing.T) (*Manager, *fake.Client, *store.Session, *storage.LocalStore) {
	t.Helper()
	client := fake.New()
	client.Responder = func(string, string) fake.Reply { return fake.Reply{Messages: []string{"ok"}} }
	g := gateway.New(client, logger.NewNopLogger(), gateway.WithPollInterval(time.Millisecond))
	files, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	m := NewManager(client, g, files, logger.NewNopLogger(), Config{
		CorpusName:   "dokument review",
		ChangeNotice: notice,
		Assistants:   map[string]string{"security": "asst_sec", "guidelines": "asst_guide", "review": ""},
	})
	sess := store.NewSession(criteria.MustDefaultCatalog(), usage.DefaultRates, "")
	sess.SetActiveAssistant("asst_sec")
	return m, client, sess, files
}

func TestToggle_BindThenUnbind(t *testing.T) {
	ctx := context.Background()
	m, client, sess, files := setup(t)

	b := m.Stage(sess, "QS-Plan.docx", []byte("v1"))
	assert.Equal(t, binding.StateUnbound, b.State)

	state, err := m.Toggle(ctx, sess, "QS-Plan.docx", nil)
	require.NoError(t, err)
	assert.Equal(t, binding.StateBound, state)

	got, _ := sess.Documents.Get("QS-Plan.docx")
	require.NotEmpty(t, got.RemoteFileID)
	corpus, err := m.Corpus(ctx)
	require.NoError(t, err)
	assert.Contains(t, client.Files(corpus), got.RemoteFileID)
	assert.Equal(t, map[string]string{"asst_sec": corpus, "asst_guide": corpus}, client.Bindings())
	assert.Contains(t, client.Posted, notice)
	assert.Equal(t, 0, sess.Ledger.Len(), "the change notice is silent")

	stored, err := files.Get(ctx, storage.Key(sess.ID, "QS-Plan.docx"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), stored)

	state, err = m.Toggle(ctx, sess, "QS-Plan.docx", nil)
	require.NoError(t, err)
	assert.Equal(t, binding.StateUnbound, state)
	assert.Equal(t, []string{got.RemoteFileID}, client.Deleted)
	assert.NotContains(t, client.Files(corpus), got.RemoteFileID)

	after, _ := sess.Documents.Get("QS-Plan.docx")
	assert.Empty(t, after.RemoteFileID)
}

func TestToggle_RebindIngestsAgain(t *testing.T) {
	ctx := context.Background()
	m, client, sess, _ := setup(t)
	m.Stage(sess, "a.pdf", []byte("x"))

	for i := 0; i < 3; i++ {
		_, err := m.Toggle(ctx, sess, "a.pdf", nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, client.IngestCalls)
	b, _ := sess.Documents.Get("a.pdf")
	assert.Equal(t, binding.StateBound, b.State)
}

func TestToggle_BindKeepsBoard(t *testing.T) {
	ctx := context.Background()
	m, _, sess, _ := setup(t)
	sess.Board.Set("Dateiformat", criteria.StatusPass)

	_, err := m.Toggle(ctx, sess, "a.pdf", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, criteria.StatusPass, sess.Board.Get("Dateiformat"))
}

func TestToggle_SeveralFilesBound(t *testing.T) {
	ctx := context.Background()
	m, _, sess, _ := setup(t)

	_, err := m.Toggle(ctx, sess, "a.pdf", []byte("a"))
	require.NoError(t, err)
	_, err = m.Toggle(ctx, sess, "b.pdf", []byte("b"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, sess.Documents.Bound())
}

func TestToggle_CorpusResolvedOnce(t *testing.T) {
	ctx := context.Background()
	m, _, sess, _ := setup(t)

	_, err := m.Toggle(ctx, sess, "a.pdf", []byte("a"))
	require.NoError(t, err)
	first, _ := m.Corpus(ctx)
	_, err = m.Toggle(ctx, sess, "b.pdf", []byte("b"))
	require.NoError(t, err)
	second, _ := m.Corpus(ctx)
	assert.Equal(t, first, second)
}

func TestToggle_Errors(t *testing.T) {
	ctx := context.Background()
	m, client, sess, _ := setup(t)

	_, err := m.Toggle(ctx, sess, "missing.pdf", nil)
	assert.ErrorIs(t, err, ErrUnknownDocument)

	m.Stage(sess, "empty.pdf", nil)
	_, err = m.Toggle(ctx, sess, "empty.pdf", nil)
	assert.ErrorIs(t, err, ErrNoContent)
	assert.Equal(t, 0, client.IngestCalls)
}

func TestToggle_NoticeFallsBackToDefaultPersona(t *testing.T) {
	tests := []struct {
		name     string
		review   string
		wantRuns int
	}{
		{"default persona configured", "asst_rev", 1},
		{"no assistant configured at all", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			client := fake.New()
			var routed []string
			client.Responder = func(assistantID, _ string) fake.Reply {
				routed = append(routed, assistantID)
				return fake.Reply{Messages: []string{"ok"}}
			}
			g := gateway.New(client, logger.NewNopLogger(), gateway.WithPollInterval(time.Millisecond))
			m := NewManager(client, g, nil, logger.NewNopLogger(), Config{
				ChangeNotice:   notice,
				Assistants:     map[string]string{"review": tt.review},
				DefaultPersona: "review",
			})
			sess := store.NewSession(criteria.MustDefaultCatalog(), usage.DefaultRates, "")

			state, err := m.Toggle(ctx, sess, "a.pdf", []byte("a"))
			require.NoError(t, err)
			assert.Equal(t, binding.StateBound, state)
			assert.Equal(t, tt.wantRuns, client.Runs)
			if tt.wantRuns > 0 {
				assert.Equal(t, []string{tt.review}, routed)
				assert.Contains(t, client.Posted, notice)
			}
			assert.Equal(t, 0, sess.Ledger.Len())
		})
	}
}
