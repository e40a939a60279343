package backend

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemory_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemory("t")

	if err := s.Put(ctx, "k1", "v1", time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}
	v, err := s.Get(ctx, "k1")
	if err != nil || v != "v1" {
		t.Fatalf("get: %q, %v", v, err)
	}

	existed, err := s.Delete(ctx, "k1")
	if err != nil || !existed {
		t.Fatalf("delete: existed=%v err=%v", existed, err)
	}
	existed, err = s.Delete(ctx, "k1")
	if err != nil || existed {
		t.Fatalf("second delete: existed=%v err=%v", existed, err)
	}

	if _, err := s.Get(ctx, "k1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNew_DriverSelection(t *testing.T) {
	for _, driver := range []string{"memory", ""} {
		s, err := New(Config{Driver: driver})
		if err != nil || s == nil {
			t.Fatalf("driver %q: %v", driver, err)
		}
	}

	// Un driver con typo no debe caer silenciosamente al store in-process.
	if _, err := New(Config{Driver: "rediss"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestMemory_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemory("")

	if err := s.Put(ctx, "k", "v", 20*time.Millisecond); err != nil {
		t.Fatalf("put: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestMemory_TakeAtomicExactlyOne(t *testing.T) {
	ctx := context.Background()
	s := NewMemory("")
	if err := s.Put(ctx, "code", "payload", time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}

	const racers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, losses := 0, 0

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.Take(ctx, "code")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && v == "payload":
				wins++
			case errors.Is(err, ErrNotFound):
				losses++
			default:
				t.Errorf("unexpected take result: %q, %v", v, err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 || losses != racers-1 {
		t.Fatalf("expected exactly one winner, got wins=%d losses=%d", wins, losses)
	}
}
