package engine_test

import (
	"errors"
	"testing"

	"github.com/jacokyle01/chess-scheduler/engine"
	"github.com/jacokyle01/chess-scheduler/engine/enginetest"
	"github.com/jacokyle01/chess-scheduler/models"
	"github.com/rs/zerolog"
)

func TestSetOptionsOrder(t *testing.T) {
	cfg := engine.Config{
		Path:    "/usr/bin/stockfish",
		Threads: 2,
		HashMB:  64,
		Options: map[string]string{"UCI_ShowWDL": "true", "Contempt": "0"},
	}
	opts := cfg.SetOptions()
	want := []string{"Threads", "Hash", "Contempt", "UCI_ShowWDL"}
	if len(opts) != len(want) {
		t.Fatalf("got %d options want %d", len(opts), len(want))
	}
	for i, name := range want {
		if opts[i].Name != name {
			t.Fatalf("option %d: got %s want %s", i, opts[i].Name, name)
		}
	}
	if opts[0].Value != "2" || opts[1].Value != "64" {
		t.Fatalf("unexpected values %+v", opts[:2])
	}
}

func TestLabelFallsBackToPath(t *testing.T) {
	if got := (engine.Config{Path: "sf"}).Label(); got != "sf" {
		t.Fatalf("label: got %q", got)
	}
	if got := (engine.Config{Name: "Stockfish", Path: "sf"}).Label(); got != "Stockfish" {
		t.Fatalf("label: got %q", got)
	}
}

func TestUnconfiguredSlot(t *testing.T) {
	fake := enginetest.New()
	slot := engine.NewSlot(0, nil, fake.Factory(), zerolog.Nop())
	if slot.Configured() {
		t.Fatalf("slot without config reports configured")
	}
	if _, err := slot.Acquire(models.RoleSearch); !errors.Is(err, engine.ErrNoEngine) {
		t.Fatalf("expected ErrNoEngine, got %v", err)
	}
	if fake.Started() != 0 {
		t.Fatalf("no process should be started")
	}
}

func TestSlotBindsOneProcessPerRole(t *testing.T) {
	fake := enginetest.New()
	slot := engine.NewSlot(1, &engine.Config{Path: "fake"}, fake.Factory(), zerolog.Nop())

	a1, err := slot.Acquire(models.RoleAnalysis)
	if err != nil {
		t.Fatalf("acquire analysis: %v", err)
	}
	a2, _ := slot.Acquire(models.RoleAnalysis)
	if a1 != a2 {
		t.Fatalf("analysis binding should be reused")
	}
	s1, err := slot.Acquire(models.RoleSearch)
	if err != nil {
		t.Fatalf("acquire search: %v", err)
	}
	if s1 == a1 {
		t.Fatalf("search and analysis must not share a process")
	}
	if fake.Started() != 2 {
		t.Fatalf("started: got %d want 2", fake.Started())
	}
}

func TestTeardownRecreatesLazily(t *testing.T) {
	fake := enginetest.New()
	slot := engine.NewSlot(0, &engine.Config{Path: "fake"}, fake.Factory(), zerolog.Nop())

	p1, _ := slot.Acquire(models.RoleSearch)
	slot.Teardown(models.RoleSearch)
	if p1.Alive() {
		t.Fatalf("torn down process still alive")
	}
	if fake.Started() != 1 {
		t.Fatalf("teardown must not start a process")
	}
	p2, err := slot.Acquire(models.RoleSearch)
	if err != nil {
		t.Fatalf("acquire after teardown: %v", err)
	}
	if p2 == p1 || !p2.Alive() {
		t.Fatalf("expected a fresh process")
	}
	slot.Teardown(models.RoleSearch)
	slot.Teardown(models.RoleSearch)
	if fake.Closed() != 2 {
		t.Fatalf("closed: got %d want 2", fake.Closed())
	}
}

func TestDeadBindingIsReplaced(t *testing.T) {
	fake := enginetest.New()
	slot := engine.NewSlot(0, &engine.Config{Path: "fake"}, fake.Factory(), zerolog.Nop())
	p1, _ := slot.Acquire(models.RoleAnalysis)
	p1.Close()
	p2, _ := slot.Acquire(models.RoleAnalysis)
	if p2 == p1 {
		t.Fatalf("closed process should not be handed out")
	}
}

func TestReconfigureDropsBindings(t *testing.T) {
	fake := enginetest.New()
	slot := engine.NewSlot(0, &engine.Config{Path: "fake"}, fake.Factory(), zerolog.Nop())
	a, _ := slot.Acquire(models.RoleAnalysis)
	s, _ := slot.Acquire(models.RoleSearch)

	slot.Reconfigure(&engine.Config{Name: "other", Path: "fake2"})
	if a.Alive() || s.Alive() {
		t.Fatalf("bindings should be closed on reconfigure")
	}
	if slot.Label() != "other" {
		t.Fatalf("label: got %q", slot.Label())
	}

	slot.Close()
	if slot.Configured() {
		t.Fatalf("closed slot should be unconfigured")
	}
}

func TestStartFailureIsReturned(t *testing.T) {
	fake := enginetest.New()
	fake.FailStart(enginetest.ErrCrash)
	slot := engine.NewSlot(0, &engine.Config{Path: "fake"}, fake.Factory(), zerolog.Nop())
	if _, err := slot.Acquire(models.RoleSearch); !errors.Is(err, enginetest.ErrCrash) {
		t.Fatalf("expected start error, got %v", err)
	}
}
