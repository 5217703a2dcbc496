// Package worker runs engine work for one position in the background and
// reports it as epoch-tagged events on a shared channel.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/jacokyle01/chess-scheduler/engine"
	"github.com/jacokyle01/chess-scheduler/models"
	"github.com/notnil/chess"
	"github.com/rs/zerolog"
)

// Kind tells what an Event carries.
type Kind int

const (
	// KindInfo is an intermediate evaluation.
	KindInfo Kind = iota
	// KindBestMove is the single terminal move of a search.
	KindBestMove
	// KindNoMove means the engine found no legal move.
	KindNoMove
	// KindFailure means the engine crashed or returned an error.
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindInfo:
		return "info"
	case KindBestMove:
		return "bestmove"
	case KindNoMove:
		return "nomove"
	case KindFailure:
		return "failure"
	}
	return "unknown"
}

// Terminal reports whether no further events follow for the job.
func (k Kind) Terminal() bool {
	return k != KindInfo
}

// Event is one message from a worker. Epoch is the epoch of the job that
// produced it, so consumers can drop events from superseded workers.
type Event struct {
	JobID  string
	Role   models.Role
	Slot   int
	Side   chess.Color
	Epoch  uint64
	Kind   Kind
	Result models.AnalysisResult
	Move   *chess.Move
	Err    error
}

// Handle is the owner's reference to a running worker.
type Handle struct {
	job    models.WorkerJob
	slot   *engine.Slot
	cancel context.CancelFunc
	done   chan struct{}
}

func (h *Handle) Job() models.WorkerJob {
	return h.job
}

func (h *Handle) Epoch() uint64 {
	return h.job.Epoch
}

func (h *Handle) Role() models.Role {
	return h.job.Role
}

// Done is closed when the worker goroutine has returned.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Stop cancels the worker and waits up to grace for it to return. When it
// does not, the engine binding it uses is torn down and Stop reports false.
func (h *Handle) Stop(grace time.Duration) bool {
	h.cancel()
	t := time.NewTimer(grace)
	defer t.Stop()
	select {
	case <-h.done:
		return true
	case <-t.C:
		h.slot.Teardown(h.job.Role)
		return false
	}
}

// Launcher starts workers that report to one event channel.
type Launcher struct {
	out              chan<- Event
	quit             <-chan struct{}
	analysisMaxDepth int
	log              zerolog.Logger
}

// NewLauncher creates a Launcher. Workers stop sending once quit is closed.
func NewLauncher(out chan<- Event, quit <-chan struct{}, analysisMaxDepth int, log zerolog.Logger) *Launcher {
	if analysisMaxDepth <= 0 {
		analysisMaxDepth = 99
	}
	return &Launcher{out: out, quit: quit, analysisMaxDepth: analysisMaxDepth, log: log}
}

// Start runs job against slot in a new goroutine.
func (l *Launcher) Start(ctx context.Context, slot *engine.Slot, job models.WorkerJob) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{job: job, slot: slot, cancel: cancel, done: make(chan struct{})}

	l.log.Debug().
		Str("job", job.ID).
		Str("role", job.Role.String()).
		Int("slot", job.Slot).
		Uint64("epoch", job.Epoch).
		Str("limit", job.Limit.String()).
		Msg("worker started")

	go func() {
		defer close(h.done)
		defer cancel()
		l.run(ctx, slot, job)
	}()
	return h
}

func (l *Launcher) run(ctx context.Context, slot *engine.Slot, job models.WorkerJob) {
	proc, err := slot.Acquire(job.Role)
	if err != nil {
		if ctx.Err() == nil {
			l.finish(job, Event{Kind: KindFailure, Err: err})
		}
		return
	}
	if ctx.Err() != nil {
		return
	}

	switch job.Role {
	case models.RoleAnalysis:
		l.analyze(ctx, proc, job)
	case models.RoleSearch:
		l.search(ctx, proc, job)
	}
}

func (l *Launcher) analyze(ctx context.Context, proc engine.Process, job models.WorkerJob) {
	err := proc.Analyze(ctx, job.Position, l.analysisMaxDepth, func(r models.AnalysisResult) {
		r.JobID = job.ID
		l.info(ctx, job, r)
	})
	switch {
	case err == nil, ctx.Err() != nil:
		l.log.Debug().Str("job", job.ID).Uint64("epoch", job.Epoch).Msg("analysis finished")
	case errors.Is(err, engine.ErrNoMove):
		l.finish(job, Event{Kind: KindNoMove})
	default:
		l.finish(job, Event{Kind: KindFailure, Err: err})
	}
}

func (l *Launcher) search(ctx context.Context, proc engine.Process, job models.WorkerJob) {
	move, res, err := proc.BestMove(ctx, job.Position, job.Limit, func(r models.AnalysisResult) {
		r.JobID = job.ID
		l.info(ctx, job, r)
	})
	if err != nil {
		switch {
		case ctx.Err() != nil:
			l.log.Debug().Str("job", job.ID).Uint64("epoch", job.Epoch).Msg("search cancelled")
		case errors.Is(err, engine.ErrNoMove):
			l.finish(job, Event{Kind: KindNoMove})
		default:
			l.finish(job, Event{Kind: KindFailure, Err: err})
		}
		return
	}
	res.JobID = job.ID
	l.finish(job, Event{Kind: KindBestMove, Move: move, Result: res})
}

// info delivers an intermediate result unless the worker was cancelled.
func (l *Launcher) info(ctx context.Context, job models.WorkerJob, r models.AnalysisResult) {
	ev := l.tag(job, Event{Kind: KindInfo, Result: r})
	select {
	case l.out <- ev:
	case <-ctx.Done():
	case <-l.quit:
	}
}

// finish delivers a terminal event even after cancellation so the consumer
// sees and discards it by epoch.
func (l *Launcher) finish(job models.WorkerJob, ev Event) {
	ev = l.tag(job, ev)
	if ev.Kind == KindFailure {
		l.log.Error().Err(ev.Err).Str("job", job.ID).Str("role", job.Role.String()).Int("slot", job.Slot).Msg("engine failure")
	}
	select {
	case l.out <- ev:
	case <-l.quit:
	}
}

func (l *Launcher) tag(job models.WorkerJob, ev Event) Event {
	ev.JobID = job.ID
	ev.Role = job.Role
	ev.Slot = job.Slot
	ev.Side = job.Side
	ev.Epoch = job.Epoch
	return ev
}
