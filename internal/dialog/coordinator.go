package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jkaninda/mcp-secrets/internal/elicit"
	"github.com/jkaninda/mcp-secrets/internal/observability"
)

// SecretWriter persists one collected value. Satisfied by the secrets
// store; the coordinator never reads existing values back.
type SecretWriter interface {
	Store(name, value string) error
}

// Outcome summarizes a successful collection.
type Outcome struct {
	Stored int // Fields written; blank fields keep their existing value.
}

// Coordinator runs the collection flow: it spawns the collector process,
// issues the in-protocol confirmation carrying the same verification
// code, and reconciles the two into a single outcome.
//
// The collector always starts before the confirmation is issued, so the
// external dialog is visibly up before the user is told to expect it.
// Declining the confirmation cancels the collector; the reverse does not
// auto-resolve the confirmation — a collector that exits on its own is
// awaited and reconciled only after the confirmation resolves, since the
// confirmation is the final arbiter of whether values are committed.
type Coordinator struct {
	runner  Runner
	writer  SecretWriter
	metrics *observability.MetricsCollector
	logger  *slog.Logger
}

// NewCoordinator wires a coordinator to its collector runner and store.
func NewCoordinator(runner Runner, writer SecretWriter, metrics *observability.MetricsCollector, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		runner:  runner,
		writer:  writer,
		metrics: metrics,
		logger:  logger,
	}
}

type collectorResult struct {
	values map[string]string
	err    error
}

// Collect gathers values for the schema's fields and stores every
// non-blank one in schema order. No timeout is imposed here; an
// unresponsive channel suspends until the surrounding session cancels
// ctx. Nothing is rolled back when a later field's write fails —
// already-written fields stay committed and the write error propagates.
func (c *Coordinator) Collect(ctx context.Context, identity string, schema Schema, elicitor elicit.Elicitor, notifier elicit.Notifier) (*Outcome, error) {
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("invalid collection schema: %w", err)
	}
	if elicitor == nil {
		return nil, fmt.Errorf("collection requires a live elicitation channel")
	}

	code, err := NewVerificationCode()
	if err != nil {
		return nil, err
	}
	template := BuildTemplate(identity, code, schema)

	attempt := uuid.NewString()
	logger := c.logger.With(slog.String("attempt", attempt), slog.String("identity", identity))
	logger.Info("collection started", slog.Int("fields", len(schema)))
	start := time.Now()

	// The collector runs under its own cancellable context so that a
	// declined confirmation can kill it without touching the caller's.
	collectorCtx, cancelCollector := context.WithCancel(ctx)
	defer cancelCollector()

	resultCh := make(chan collectorResult, 1)
	go func() {
		values, runErr := c.runner.Run(collectorCtx, template)
		resultCh <- collectorResult{values: values, err: runErr}
	}()

	if notifier != nil {
		notifier.Notify(ctx, "A credential dialog should appear. Fill it out, then confirm below.")
	}

	confirm, err := elicitor.Elicit(ctx,
		fmt.Sprintf("Secrets requested [Code: %s] — confirm this code matches the dialog, complete it, then accept.", code),
		nil,
	)
	if err != nil {
		cancelCollector()
		<-resultCh
		return nil, fmt.Errorf("collection confirmation failed: %w", err)
	}
	if !confirm.Accepted() {
		// User declined in-protocol: kill the dialog and discard any
		// output it may already have produced.
		cancelCollector()
		<-resultCh
		logger.Info("collection declined in protocol channel", slog.String("action", string(confirm.Action)))
		c.metrics.RecordCollection("cancelled", time.Since(start), 0)
		return nil, ErrCollectionCancelled
	}

	res := <-resultCh
	if res.err != nil {
		if errors.Is(res.err, context.Canceled) || errors.Is(res.err, errCollectorCancelled) {
			logger.Info("collection cancelled in dialog")
			c.metrics.RecordCollection("cancelled", time.Since(start), 0)
			return nil, ErrCollectionCancelled
		}
		logger.Error("collection failed", slog.String("error", res.err.Error()))
		c.metrics.RecordCollection("failed", time.Since(start), 0)
		var ce *CollectionError
		if errors.As(res.err, &ce) {
			return nil, res.err
		}
		return nil, &CollectionError{Stage: "run", Err: res.err}
	}

	// An all-blank result is a cancellation, not an empty success.
	provided := 0
	for _, f := range schema {
		if res.values[f.Name] != "" {
			provided++
		}
	}
	if provided == 0 {
		logger.Info("collection returned no values")
		c.metrics.RecordCollection("cancelled", time.Since(start), 0)
		return nil, ErrCollectionCancelled
	}

	// Store sequentially in schema order. Blank means "keep existing".
	stored := 0
	for _, f := range schema {
		value := res.values[f.Name]
		if value == "" {
			continue
		}
		if err := c.writer.Store(f.Name, value); err != nil {
			c.metrics.RecordCollection("failed", time.Since(start), stored)
			return nil, err
		}
		stored++
	}

	logger.Info("collection succeeded", slog.Int("stored", stored))
	c.metrics.RecordCollection("success", time.Since(start), stored)
	return &Outcome{Stored: stored}, nil
}
