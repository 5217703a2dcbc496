package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jacokyle01/chess-scheduler/engine"
	"github.com/jacokyle01/chess-scheduler/engine/enginetest"
	"github.com/jacokyle01/chess-scheduler/models"
	"github.com/notnil/chess"
	"github.com/rs/zerolog"
)

func startJob(role models.Role, epoch uint64) models.WorkerJob {
	pos := chess.NewGame().Position()
	return models.WorkerJob{
		ID:       "job",
		Role:     role,
		Side:     chess.White,
		Epoch:    epoch,
		FEN:      pos.String(),
		Limit:    models.SearchLimit{Depth: 5},
		Position: pos,
	}
}

func newSlot(fake *enginetest.Engine) *engine.Slot {
	return engine.NewSlot(0, &engine.Config{Path: "fake"}, fake.Factory(), zerolog.Nop())
}

func next(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for worker event")
	}
	return Event{}
}

func TestSearchReportsInfoThenMove(t *testing.T) {
	fake := enginetest.New()
	fake.PlayMove("e2e4")
	out := make(chan Event, 8)
	l := NewLauncher(out, nil, 10, zerolog.Nop())

	h := l.Start(context.Background(), newSlot(fake), startJob(models.RoleSearch, 7))

	info := next(t, out)
	if info.Kind != KindInfo || info.Epoch != 7 || info.Role != models.RoleSearch {
		t.Fatalf("unexpected first event %+v", info)
	}
	best := next(t, out)
	if best.Kind != KindBestMove || best.Move == nil || best.Move.String() != "e2e4" {
		t.Fatalf("unexpected terminal event %+v", best)
	}
	if best.Result.JobID != "job" {
		t.Fatalf("result not tagged with job id")
	}
	<-h.Done()
	if got := fake.Limits(); len(got) != 1 || got[0].Depth != 5 {
		t.Fatalf("search limit not forwarded: %+v", got)
	}
}

func TestAnalysisStopsCooperatively(t *testing.T) {
	fake := enginetest.New()
	out := make(chan Event, 8)
	l := NewLauncher(out, nil, 10, zerolog.Nop())

	h := l.Start(context.Background(), newSlot(fake), startJob(models.RoleAnalysis, 3))
	if ev := next(t, out); ev.Kind != KindInfo || ev.Epoch != 3 {
		t.Fatalf("unexpected analysis event %+v", ev)
	}
	if !h.Stop(time.Second) {
		t.Fatalf("analysis did not acknowledge stop")
	}
	if fake.Closed() != 0 {
		t.Fatalf("cooperative stop must not tear down the engine")
	}
	select {
	case ev := <-out:
		t.Fatalf("no event expected after cooperative stop, got %+v", ev)
	default:
	}
}

func TestStopEscalatesToTeardown(t *testing.T) {
	fake := enginetest.New()
	fake.Hold(true)
	out := make(chan Event, 8)
	l := NewLauncher(out, nil, 10, zerolog.Nop())

	h := l.Start(context.Background(), newSlot(fake), startJob(models.RoleSearch, 1))
	deadline := time.Now().Add(2 * time.Second)
	for fake.Searches() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("search never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	start := time.Now()
	if h.Stop(30 * time.Millisecond) {
		t.Fatalf("stubborn search should not acknowledge stop")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("stop exceeded its grace period")
	}
	if fake.Closed() != 1 {
		t.Fatalf("binding should be torn down, closed=%d", fake.Closed())
	}

	fake.Release()
	ev := next(t, out)
	for !ev.Kind.Terminal() {
		ev = next(t, out)
	}
	if ev.Kind != KindBestMove || ev.Epoch != 1 {
		t.Fatalf("late move should still be delivered for epoch filtering, got %+v", ev)
	}
}

func TestCancelledSearchSendsNothing(t *testing.T) {
	fake := enginetest.New()
	fake.Hold(false)
	out := make(chan Event, 8)
	l := NewLauncher(out, nil, 10, zerolog.Nop())

	h := l.Start(context.Background(), newSlot(fake), startJob(models.RoleSearch, 2))
	if !h.Stop(time.Second) {
		t.Fatalf("search did not stop")
	}
	fake.Release()
	select {
	case ev := <-out:
		t.Fatalf("cancelled search sent %+v", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestEngineCrashIsReported(t *testing.T) {
	fake := enginetest.New()
	fake.FailSearches(1)
	out := make(chan Event, 8)
	l := NewLauncher(out, nil, 10, zerolog.Nop())

	l.Start(context.Background(), newSlot(fake), startJob(models.RoleSearch, 4))
	ev := next(t, out)
	if ev.Kind != KindFailure || !errors.Is(ev.Err, enginetest.ErrCrash) || ev.Epoch != 4 {
		t.Fatalf("expected failure event, got %+v", ev)
	}
}

func TestMissingEngineIsReported(t *testing.T) {
	fake := enginetest.New()
	out := make(chan Event, 8)
	l := NewLauncher(out, nil, 10, zerolog.Nop())
	slot := engine.NewSlot(1, nil, fake.Factory(), zerolog.Nop())

	l.Start(context.Background(), slot, startJob(models.RoleAnalysis, 9))
	ev := next(t, out)
	if ev.Kind != KindFailure || !errors.Is(ev.Err, engine.ErrNoEngine) || ev.Slot != 0 {
		t.Fatalf("expected no-engine failure, got %+v", ev)
	}
}

func TestNoLegalMove(t *testing.T) {
	fake := enginetest.New()
	out := make(chan Event, 8)
	l := NewLauncher(out, nil, 10, zerolog.Nop())

	fen, _ := chess.FEN("7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	pos := chess.NewGame(fen).Position()
	job := startJob(models.RoleSearch, 5)
	job.Position = pos
	job.FEN = pos.String()

	l.Start(context.Background(), newSlot(fake), job)
	if ev := next(t, out); ev.Kind != KindNoMove {
		t.Fatalf("expected no-move event, got %+v", ev)
	}
}

func TestQuitUnblocksTerminalSend(t *testing.T) {
	fake := enginetest.New()
	out := make(chan Event)
	quit := make(chan struct{})
	l := NewLauncher(out, quit, 10, zerolog.Nop())

	h := l.Start(context.Background(), newSlot(fake), startJob(models.RoleSearch, 1))
	close(quit)
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("worker blocked on send after quit")
	}
}

func TestKindTerminal(t *testing.T) {
	if KindInfo.Terminal() {
		t.Fatalf("info is not terminal")
	}
	for _, k := range []Kind{KindBestMove, KindNoMove, KindFailure} {
		if !k.Terminal() {
			t.Fatalf("%s should be terminal", k)
		}
	}
}
