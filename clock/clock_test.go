package clock

import (
	"testing"

	"github.com/notnil/chess"
)

func TestTickOnlyTouchesActiveSide(t *testing.T) {
	p := New(10, 0, 3, 1)
	p.Tick(chess.White)
	if p.Remaining(chess.White) != 9 || p.Remaining(chess.Black) != 10 {
		t.Fatalf("unexpected clocks %+v", p.State())
	}
}

func TestExpiryFiresExactlyOnce(t *testing.T) {
	p := New(2.5, 0, 1, 1)
	fired := 0
	for i := 0; i < 6; i++ {
		if p.Tick(chess.Black) {
			fired++
		}
		if p.Remaining(chess.Black) < 0 {
			t.Fatalf("clock went below zero: %v", p.Remaining(chess.Black))
		}
	}
	if fired != 1 {
		t.Fatalf("expiry fired %d times", fired)
	}
	if !p.Expired(chess.Black) || p.Expired(chess.White) {
		t.Fatalf("wrong expired flags %+v", p.State())
	}
}

func TestIncrementAndLowTime(t *testing.T) {
	p := New(31, 2, 30, 1)
	if p.Low(chess.White) {
		t.Fatalf("31s should not be low")
	}
	p.Tick(chess.White)
	p.Tick(chess.White)
	if !p.Low(chess.White) {
		t.Fatalf("29s should be low")
	}
	p.AddIncrement(chess.White)
	if p.Remaining(chess.White) != 31 || p.Low(chess.White) {
		t.Fatalf("increment not applied: %v", p.Remaining(chess.White))
	}
}

func TestUntimedNeverExpires(t *testing.T) {
	p := New(0, 0, 30, 1)
	for i := 0; i < 3; i++ {
		if p.Tick(chess.White) {
			t.Fatalf("untimed clock expired")
		}
	}
	if p.Low(chess.White) {
		t.Fatalf("untimed clock reported low time")
	}
}

func TestSetAndAdd(t *testing.T) {
	p := New(60, 0, 10, 1)
	p.Set(chess.White, 1)
	if !p.Tick(chess.White) {
		t.Fatalf("expected expiry after set to 1s")
	}
	p.Add(chess.White, 30)
	if p.Expired(chess.White) || p.Remaining(chess.White) != 30 {
		t.Fatalf("adding time should revive the clock: %+v", p.State())
	}
	p.Add(chess.Black, -100)
	if p.Remaining(chess.Black) != 0 {
		t.Fatalf("clock went negative: %v", p.Remaining(chess.Black))
	}
}

func TestFractionalUnit(t *testing.T) {
	p := New(1, 0, 0, 0.25)
	ticks := 0
	for !p.Tick(chess.White) {
		ticks++
		if ticks > 10 {
			t.Fatalf("clock never expired")
		}
	}
	if ticks != 3 {
		t.Fatalf("expected expiry on 4th tick, got %d", ticks+1)
	}
}
