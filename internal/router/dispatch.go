package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/phrazzld/scry-tutor/internal/domain"
	"github.com/phrazzld/scry-tutor/internal/platform/logger"
)

// Collaborator names used in Degradation and metrics
const (
	CollaboratorContent   = "content"
	CollaboratorNotes     = "notes"
	CollaboratorProfiler  = "profiler"
	CollaboratorScheduler = "scheduler"
	CollaboratorEvents    = "events"
)

// Degradation records a best-effort step that failed without failing the turn.
type Degradation struct {
	Collaborator string `json:"collaborator"`
	Error        string `json:"error"`
	Timeout      bool   `json:"timeout,omitempty"`
}

type dispatchResult struct {
	content *domain.Content
	notes   []domain.NoteBlock
	profile *domain.ProfileSignal

	mu       sync.Mutex
	degraded []Degradation
}

func (r *dispatchResult) degrade(ctx context.Context, collaborator string, err error) {
	dispatchFailures.WithLabelValues(collaborator, failureReason(err)).Inc()
	logger.FromContextOrDefault(ctx, nil).WarnContext(ctx, "best-effort collaborator failed, degrading turn",
		slog.String("collaborator", collaborator),
		slog.String("error", err.Error()))

	r.mu.Lock()
	defer r.mu.Unlock()
	r.degraded = append(r.degraded, Degradation{
		Collaborator: collaborator,
		Error:        err.Error(),
		Timeout:      errors.Is(err, domain.ErrCollaboratorTimeout),
	})
}

// dispatch runs content generation (then note extraction on its output)
// concurrently with profiling. Only a content failure is returned.
func (e *Engine) dispatch(ctx context.Context, req domain.ContentRequest, turn domain.TurnContext) (*dispatchResult, error) {
	ctx, span := tracer.Start(ctx, "router.dispatch")
	defer span.End()

	res := &dispatchResult{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		content, err := callWithTimeout(gctx, e.cfg.ContentTimeout, func(ctx context.Context) (*domain.Content, error) {
			return e.content.Generate(ctx, req)
		})
		if err != nil {
			dispatchFailures.WithLabelValues(CollaboratorContent, failureReason(err)).Inc()
			return newTurnError(stageContent, "content generation failed", err)
		}
		if content == nil {
			dispatchFailures.WithLabelValues(CollaboratorContent, "error").Inc()
			return newTurnError(stageContent, "content generator returned no content", nil)
		}
		res.content = content

		if e.notes == nil {
			return nil
		}
		notes, err := callWithTimeout(gctx, e.cfg.NoteTimeout, func(ctx context.Context) ([]domain.NoteBlock, error) {
			return e.notes.Extract(ctx, content.Text)
		})
		if err != nil {
			res.degrade(gctx, CollaboratorNotes, err)
			return nil
		}
		res.notes = notes
		return nil
	})

	if e.profiler != nil {
		g.Go(func() error {
			signal, err := callWithTimeout(gctx, e.cfg.ProfileTimeout, func(ctx context.Context) (*domain.ProfileSignal, error) {
				return e.profiler.Profile(ctx, turn)
			})
			if err != nil {
				// A content failure cancels gctx; that is not the profiler's fault.
				if ctx.Err() == nil && gctx.Err() != nil {
					return nil
				}
				res.degrade(gctx, CollaboratorProfiler, err)
				return nil
			}
			res.profile = signal
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

// callWithTimeout runs fn with its own deadline. A collaborator that ignores
// its context is abandoned when the deadline passes. Deadline expiry is
// reported as domain.ErrCollaboratorTimeout; cancellation of the parent
// context is reported as the parent's error.
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		v   T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn(cctx)
		done <- outcome{v, err}
	}()

	select {
	case o := <-done:
		if o.err != nil && ctx.Err() == nil && errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %s: %w", domain.ErrCollaboratorTimeout, timeout, o.err)
		}
		return o.v, o.err
	case <-cctx.Done():
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, fmt.Errorf("%w after %s", domain.ErrCollaboratorTimeout, timeout)
	}
}
