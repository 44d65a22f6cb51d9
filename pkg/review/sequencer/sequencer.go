// Package sequencer drives a check group through the assistant: intro, one
// prompt per criterion, then the closing summary.
package sequencer

import (
	"context"
	"fmt"

	"doc-review-be/internal/pkg/logger"
	"doc-review-be/pkg/review/criteria"
	"doc-review-be/pkg/review/gateway"
	"doc-review-be/pkg/store"
)

const module = "CriteriaSequencer"

type CheckResult struct {
	Criterion string          `json:"criterion"`
	Status    criteria.Status `json:"status"`
	Reply     string          `json:"reply"`
}

type Result struct {
	GroupID string        `json:"group_id"`
	Checks  []CheckResult `json:"checks"`
	Summary string        `json:"summary"`
}

// Observer is told about every verdict as soon as it is set.
type Observer func(sess *store.Session, check CheckResult)

type Sequencer struct {
	catalog    *criteria.Catalog
	sender     gateway.Sender
	assistants map[string]string
	logger     logger.ILogger
	observer   Observer
}

type Option func(*Sequencer)

func WithObserver(fn Observer) Option {
	return func(s *Sequencer) { s.observer = fn }
}

// New builds a sequencer. assistants maps a catalog persona to the assistant
// id configured for it.
func New(catalog *criteria.Catalog, sender gateway.Sender, assistants map[string]string, log logger.ILogger, opts ...Option) *Sequencer {
	s := &Sequencer{
		catalog:    catalog,
		sender:     sender,
		assistants: assistants,
		logger:     log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunCheckGroup runs every step of the group in order. The first failing
// step aborts the rest; verdicts already set stay on the board.
func (s *Sequencer) RunCheckGroup(ctx context.Context, sess *store.Session, groupID string) (*Result, error) {
	group, err := s.catalog.Group(groupID)
	if err != nil {
		return nil, err
	}

	assistantID := s.assistants[group.Assistant]
	if assistantID == "" {
		return nil, fmt.Errorf("group %s, persona %s: %w", group.ID, group.Assistant, gateway.ErrNotConfigured)
	}
	sess.SetActiveAssistant(assistantID)

	s.logger.Info(module, "Check group started", map[string]interface{}{
		"session_id": sess.ID,
		"group":      group.ID,
		"criteria":   len(group.Criteria),
	})

	result := &Result{GroupID: group.ID}

	if group.Intro != "" {
		if _, err := s.sender.SendTurn(ctx, sess, group.Intro, gateway.WithAssistant(assistantID), gateway.Silent()); err != nil {
			return result, fmt.Errorf("intro of group %s: %w", group.ID, err)
		}
	}

	for _, idx := range group.Criteria {
		criterion := s.catalog.Criteria[idx]

		opts := []gateway.TurnOption{gateway.WithAssistant(assistantID)}
		if !group.RecordChecks {
			opts = append(opts, gateway.Silent())
		}
		reply, err := s.sender.SendTurn(ctx, sess, criterion.Prompt, opts...)
		if err != nil {
			return result, fmt.Errorf("criterion %s: %w", criterion.Name, err)
		}

		check := CheckResult{Criterion: criterion.Name, Status: criteria.Classify(reply), Reply: reply}
		sess.Board.Set(criterion.Name, check.Status)
		result.Checks = append(result.Checks, check)
		if s.observer != nil {
			s.observer(sess, check)
		}
	}

	if group.Summary != "" {
		summary, err := s.sender.SendTurn(ctx, sess, group.Summary, gateway.WithAssistant(assistantID))
		if err != nil {
			return result, fmt.Errorf("summary of group %s: %w", group.ID, err)
		}
		result.Summary = summary
	}

	s.logger.Info(module, "Check group finished", map[string]interface{}{
		"session_id": sess.ID,
		"group":      group.ID,
	})
	return result, nil
}
