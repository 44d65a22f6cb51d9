// Package gateway runs one conversational turn against the hosted assistant:
// post the prompt, run it to completion, account usage and collect the reply.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"doc-review-be/internal/pkg/logger"
	"doc-review-be/pkg/assistant"
	"doc-review-be/pkg/review/ledger"
	"doc-review-be/pkg/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const module = "AssistantGateway"

var ErrNotConfigured = errors.New("no assistant configured for this turn")

// RunTimeoutError is returned when a run does not finish within the polling
// budget. The remote run may still complete later.
type RunTimeoutError struct {
	RunID   string
	Elapsed time.Duration
}

func (e *RunTimeoutError) Error() string {
	return fmt.Sprintf("run %s did not finish within %s", e.RunID, e.Elapsed)
}

// RunFailedError is returned when a run ends in a terminal status other
// than completed.
type RunFailedError struct {
	RunID  string
	Status assistant.RunStatus
}

func (e *RunFailedError) Error() string {
	return fmt.Sprintf("run %s ended with status %s", e.RunID, e.Status)
}

type Options struct {
	PollInterval time.Duration
	RunTimeout   time.Duration
}

type Option func(*Options)

func WithPollInterval(d time.Duration) Option {
	return func(o *Options) { o.PollInterval = d }
}

func WithRunTimeout(d time.Duration) Option {
	return func(o *Options) { o.RunTimeout = d }
}

type turnOptions struct {
	assistantID string
	record      bool
}

// TurnOption adjusts a single SendTurn call.
type TurnOption func(*turnOptions)

// WithAssistant routes the turn to assistantID instead of the session's
// active assistant.
func WithAssistant(assistantID string) TurnOption {
	return func(o *turnOptions) { o.assistantID = assistantID }
}

// Silent keeps the replies of this turn out of the ledger.
func Silent() TurnOption {
	return func(o *turnOptions) { o.record = false }
}

// Sender is what the orchestration layers need from a gateway.
type Sender interface {
	SendTurn(ctx context.Context, sess *store.Session, prompt string, opts ...TurnOption) (string, error)
}

type Gateway struct {
	client assistant.Client
	logger logger.ILogger
	opts   Options
}

var _ Sender = &Gateway{}

func New(client assistant.Client, log logger.ILogger, opts ...Option) *Gateway {
	o := Options{
		PollInterval: time.Second,
		RunTimeout:   2 * time.Minute,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Gateway{client: client, logger: log, opts: o}
}

// EnsureThread creates the session's remote thread if it does not exist yet.
func (g *Gateway) EnsureThread(ctx context.Context, sess *store.Session) (string, error) {
	if id := sess.Thread(); id != "" {
		return id, nil
	}
	id, err := g.client.CreateThread(ctx)
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	sess.SetThread(id)
	g.logger.Info(module, "Thread created", map[string]interface{}{
		"session_id": sess.ID,
		"thread_id":  id,
	})
	return id, nil
}

// SendTurn posts prompt to the session thread, runs the assistant and returns
// the content of the last assistant message the run produced ("" if none).
// Usage is recorded in every successful case.
func (g *Gateway) SendTurn(ctx context.Context, sess *store.Session, prompt string, opts ...TurnOption) (string, error) {
	to := turnOptions{record: true}
	for _, opt := range opts {
		opt(&to)
	}
	if to.assistantID == "" {
		to.assistantID = sess.ActiveAssistant()
	}
	if to.assistantID == "" {
		return "", ErrNotConfigured
	}

	ctx, span := otel.Tracer("review-gateway").Start(ctx, "gateway.SendTurn")
	defer span.End()
	span.SetAttributes(
		attribute.String("session.id", sess.ID),
		attribute.String("assistant.id", to.assistantID),
		attribute.Bool("turn.recorded", to.record),
	)

	reply, err := g.sendTurn(ctx, sess, prompt, to)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.logger.Error(module, "Turn failed", map[string]interface{}{
			"session_id":   sess.ID,
			"assistant_id": to.assistantID,
			"error":        err.Error(),
		})
		return "", err
	}
	return reply, nil
}

func (g *Gateway) sendTurn(ctx context.Context, sess *store.Session, prompt string, to turnOptions) (string, error) {
	threadID, err := g.EnsureThread(ctx, sess)
	if err != nil {
		return "", err
	}

	if err := g.client.PostMessage(ctx, threadID, ledger.RoleUser, prompt); err != nil {
		return "", fmt.Errorf("post prompt: %w", err)
	}

	run, err := g.client.CreateRun(ctx, threadID, to.assistantID)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}

	run, err = g.await(ctx, threadID, run)
	if err != nil {
		return "", err
	}

	var prompted, completed int
	if run.Usage != nil {
		prompted, completed = run.Usage.PromptTokens, run.Usage.CompletionTokens
	}
	cost := sess.Usage.Record(prompted, completed)

	msgs, err := g.client.ListMessages(ctx, threadID, sess.LastSeen())
	if err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}

	reply := ""
	appended := 0
	for _, m := range msgs {
		if m.Role != ledger.RoleAssistant || m.RunID != run.ID {
			continue
		}
		reply = m.Content
		if to.record && sess.Ledger.Append(ledger.RoleAssistant, m.Content) {
			appended++
		}
	}
	if len(msgs) > 0 {
		sess.Advance(msgs[len(msgs)-1].ID)
	}

	g.logger.Info(module, "Turn completed", map[string]interface{}{
		"session_id":        sess.ID,
		"run_id":            run.ID,
		"prompt_tokens":     prompted,
		"completion_tokens": completed,
		"cost":              cost,
		"appended":          appended,
	})
	return reply, nil
}

// await polls the run at a fixed interval until it reaches a terminal status.
func (g *Gateway) await(ctx context.Context, threadID string, run *assistant.Run) (*assistant.Run, error) {
	if run.Status == assistant.RunStatusCompleted {
		return run, nil
	}

	started := time.Now()
	deadline := time.NewTimer(g.opts.RunTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(g.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, &RunTimeoutError{RunID: run.ID, Elapsed: time.Since(started).Round(time.Millisecond)}
		case <-ticker.C:
		}

		current, err := g.client.GetRun(ctx, threadID, run.ID)
		if err != nil {
			return nil, fmt.Errorf("poll run: %w", err)
		}
		if !current.Status.Terminal() {
			continue
		}
		if current.Status != assistant.RunStatusCompleted {
			return nil, &RunFailedError{RunID: run.ID, Status: current.Status}
		}
		return current, nil
	}
}
