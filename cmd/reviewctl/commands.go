package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"doc-review-be/internal/bootstrap"
	"doc-review-be/internal/config"
	"doc-review-be/internal/dto"
	"doc-review-be/pkg/events"
	pktNats "doc-review-be/pkg/nats"
	"doc-review-be/pkg/review/criteria"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newCatalogCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List criteria and check groups",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				path = config.Load().Review.CatalogPath
			}
			catalog, err := criteria.Load(path)
			if err != nil {
				return err
			}
			printCatalog(cmd.OutOrStdout(), catalog)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "file", "", "catalog YAML (defaults to REVIEW_CATALOG_PATH or the built-in catalog)")
	return cmd
}

// session opens an in-process review session with the given documents bound.
func session(ctx context.Context, docs []string) (*bootstrap.Container, string, error) {
	c, err := bootstrap.NewContainer(ctx, nil, config.Load())
	if err != nil {
		return nil, "", err
	}
	res, err := c.ReviewService.CreateSession(ctx)
	if err != nil {
		c.Close()
		return nil, "", err
	}

	for _, p := range docs {
		content, err := os.ReadFile(p)
		if err != nil {
			c.Close()
			return nil, "", fmt.Errorf("read %s: %w", p, err)
		}
		doc, err := c.ReviewService.UploadDocument(ctx, res.SessionId, filepath.Base(p), content)
		if err != nil {
			c.Close()
			return nil, "", err
		}
		color.Cyan("bound %s (%s)", doc.FileName, doc.State)
	}
	return c, res.SessionId, nil
}

func newCheckCmd() *cobra.Command {
	var docs []string
	cmd := &cobra.Command{
		Use:   "check <group>",
		Short: "Run one check group against the given documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, sessionID, err := session(ctx, docs)
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.ReviewService.RunCheckGroup(ctx, sessionID, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, check := range res.Checks {
				printStatus(out, check.Criterion, check.Status)
			}
			_, _ = fmt.Fprintf(out, "\n%s\n\n", res.Summary)
			printUsage(out, res.Usage)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&docs, "doc", nil, "document to bind before the check (repeatable)")
	return cmd
}

func newChatCmd() *cobra.Command {
	var docs []string
	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Ask the review assistant a single question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, sessionID, err := session(ctx, docs)
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.ReviewService.SendChat(ctx, sessionID, &dto.SendChatRequest{Message: args[0]})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s\n\n", res.Reply)
			printUsage(out, res.Usage)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&docs, "doc", nil, "document to bind before asking (repeatable)")
	return cmd
}

func newWatchCmd() *cobra.Command {
	var subject, durable string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream review events from NATS",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if cfg.App.NatsURL == "" {
				return fmt.Errorf("NATS_URL is not set")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
			if err != nil {
				return err
			}
			defer sub.Close()

			out := cmd.OutOrStdout()
			cc, err := sub.Subscribe(ctx, subject, durable, func(_ context.Context, e events.Event) error {
				printEvent(out, e)
				return nil
			})
			if err != nil {
				return err
			}
			defer cc.Stop()

			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", pktNats.SubjectPrefix+">", "subject filter")
	cmd.Flags().StringVar(&durable, "durable", "", "durable consumer name (empty for ephemeral)")
	return cmd
}

func printCatalog(w io.Writer, c *criteria.Catalog) {
	for _, g := range c.Groups {
		_, _ = color.New(color.Bold).Fprintf(w, "%s", g.ID)
		_, _ = fmt.Fprintf(w, "  %s  [%s]\n", g.Title, g.Assistant)
		for _, idx := range g.Criteria {
			_, _ = fmt.Fprintf(w, "    %2d. %s\n", idx, c.Criteria[idx].Name)
		}
	}
}

func printStatus(w io.Writer, criterion, status string) {
	var badge *color.Color
	switch criteria.Status(status) {
	case criteria.StatusPass:
		badge = color.New(color.FgGreen)
	case criteria.StatusFail:
		badge = color.New(color.FgRed)
	default:
		badge = color.New(color.FgHiBlack)
	}
	_, _ = badge.Fprintf(w, "%-8s", status)
	_, _ = fmt.Fprintf(w, " %s\n", criterion)
}

func printUsage(w io.Writer, u dto.UsageDTO) {
	_, _ = fmt.Fprintf(w, "Tokens: %d  Kosten: €%.4f\n", u.TokenTotal, u.CostTotal)
}

func printEvent(w io.Writer, e events.Event) {
	_, _ = color.New(color.FgYellow).Fprintf(w, "%s", e.EventType())
	_, _ = fmt.Fprintf(w, " %v\n", e.Payload())
}
