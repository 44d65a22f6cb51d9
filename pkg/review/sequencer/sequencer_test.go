package sequencer

import (
	"context"
	"errors"
	"testing"
	"time"

	"doc-review-be/internal/pkg/logger"
	"doc-review-be/pkg/assistant"
	"doc-review-be/pkg/assistant/fake"
	"doc-review-be/pkg/review/criteria"
	"doc-review-be/pkg/review/gateway"
	"doc-review-be/pkg/review/ledger"
	"doc-review-be/pkg/review/usage"
	"doc-review-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var assistants = map[string]string{
	"security":       "asst_sec",
	"guidelines":     "asst_guide",
	"responsibility": "asst_resp",
}

func setup(t *testing.T, replies ...fake.Reply) (*Sequencer, *fake.Client, *store.Session, *criteria.Catalog) {
	t.Helper()
	catalog := criteria.MustDefaultCatalog()
	client := fake.New(replies...)
	g := gateway.New(client, logger.NewNopLogger(), gateway.WithPollInterval(time.Millisecond), gateway.WithRunTimeout(time.Second))
	seq := New(catalog, g, assistants, logger.NewNopLogger())
	sess := store.NewSession(catalog, usage.DefaultRates, "")
	return seq, client, sess, catalog
}

func msg(s string) fake.Reply { return fake.Reply{Messages: []string{s}} }

func TestRunCheckGroup_Security(t *testing.T) {
	seq, client, sess, _ := setup(t,
		msg("Verstanden"),
		msg("Geheimhaltungsstufe: i.O"),
		msg("Unterlagenklasse: n.i.O"),
		msg("Keine Angabe"),
		msg("Zusammenfassung"),
	)

	result, err := seq.RunCheckGroup(context.Background(), sess, "security")
	require.NoError(t, err)

	assert.Equal(t, []CheckResult{
		{Criterion: "Geheimhaltungsstufe", Status: criteria.StatusPass, Reply: "Geheimhaltungsstufe: i.O"},
		{Criterion: "Unterlagenklasse", Status: criteria.StatusFail, Reply: "Unterlagenklasse: n.i.O"},
		{Criterion: "Dateiformat", Status: criteria.StatusUnknown, Reply: "Keine Angabe"},
	}, result.Checks)
	assert.Equal(t, "Zusammenfassung", result.Summary)
	assert.Equal(t, criteria.StatusFail, sess.Board.Get("Unterlagenklasse"))
	assert.Equal(t, "asst_sec", sess.ActiveAssistant())
	assert.Equal(t, 5, client.Runs)

	// Intro and checks are silent, only the summary reaches the ledger.
	assert.Equal(t, []ledger.Message{{Role: ledger.RoleAssistant, Content: "Zusammenfassung"}}, sess.Ledger.Entries())
}

func TestRunCheckGroup_EachReplyClassifiedOnItsOwn(t *testing.T) {
	seq, _, sess, _ := setup(t,
		msg("intro"),
		msg("Geheimhaltungsstufe: n.i.O"),
		msg("Unterlagenklasse: i.O"),
		msg("Dateiformat: i.O"),
		msg("summary"),
	)

	_, err := seq.RunCheckGroup(context.Background(), sess, "security")
	require.NoError(t, err)
	assert.Equal(t, criteria.StatusFail, sess.Board.Get("Geheimhaltungsstufe"))
	assert.Equal(t, criteria.StatusPass, sess.Board.Get("Unterlagenklasse"))
	assert.Equal(t, criteria.StatusPass, sess.Board.Get("Dateiformat"))
}

func TestRunCheckGroup_Guidelines(t *testing.T) {
	seq, client, sess, catalog := setup(t)
	client.Responder = func(assistantID, prompt string) fake.Reply {
		assert.Equal(t, "asst_guide", assistantID)
		return msg("i.O")
	}

	result, err := seq.RunCheckGroup(context.Background(), sess, "guidelines")
	require.NoError(t, err)
	group, _ := catalog.Group("guidelines")
	assert.Len(t, result.Checks, len(group.Criteria))
	for _, idx := range group.Criteria {
		assert.Equal(t, criteria.StatusPass, sess.Board.Get(catalog.Criteria[idx].Name))
	}
	// Criteria of other groups are untouched.
	assert.Equal(t, criteria.StatusUnknown, sess.Board.Get("Geheimhaltungsstufe"))
}

func TestRunCheckGroup_UnknownGroup(t *testing.T) {
	seq, client, sess, _ := setup(t)

	_, err := seq.RunCheckGroup(context.Background(), sess, "nope")
	assert.ErrorIs(t, err, criteria.ErrUnknownGroup)
	assert.Equal(t, 0, client.Runs)
}

func TestRunCheckGroup_PersonaNotConfigured(t *testing.T) {
	catalog := criteria.MustDefaultCatalog()
	client := fake.New()
	g := gateway.New(client, logger.NewNopLogger())
	seq := New(catalog, g, map[string]string{}, logger.NewNopLogger())
	sess := store.NewSession(catalog, usage.DefaultRates, "")

	_, err := seq.RunCheckGroup(context.Background(), sess, "security")
	assert.ErrorIs(t, err, gateway.ErrNotConfigured)
}

func TestRunCheckGroup_AbortsOnFailure(t *testing.T) {
	remote := &assistant.APIError{StatusCode: 500, Message: "boom"}
	seq, client, sess, _ := setup(t,
		msg("intro"),
		msg("Geheimhaltungsstufe: i.O"),
		fake.Reply{Err: remote},
	)

	result, err := seq.RunCheckGroup(context.Background(), sess, "security")
	require.Error(t, err)
	assert.True(t, errors.Is(err, remote))
	assert.Len(t, result.Checks, 1)
	assert.Equal(t, criteria.StatusPass, sess.Board.Get("Geheimhaltungsstufe"))
	assert.Equal(t, criteria.StatusUnknown, sess.Board.Get("Unterlagenklasse"))
	assert.Equal(t, criteria.StatusUnknown, sess.Board.Get("Dateiformat"))
	assert.Equal(t, 2, client.Runs)
}

func TestRunCheckGroup_Observer(t *testing.T) {
	catalog := criteria.MustDefaultCatalog()
	client := fake.New()
	client.Responder = func(string, string) fake.Reply { return msg("i.O") }
	g := gateway.New(client, logger.NewNopLogger(), gateway.WithPollInterval(time.Millisecond))

	var seen []string
	seq := New(catalog, g, assistants, logger.NewNopLogger(), WithObserver(func(_ *store.Session, c CheckResult) {
		seen = append(seen, c.Criterion)
	}))
	sess := store.NewSession(catalog, usage.DefaultRates, "")

	_, err := seq.RunCheckGroup(context.Background(), sess, "responsibility")
	require.NoError(t, err)
	assert.Equal(t, []string{"Freigeber", "Verantwortlichkeit"}, seen)
}
