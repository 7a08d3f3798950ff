package chat

import "testing"

func TestNewClampsConcurrencyToHardCap(t *testing.T) {
	b := New(Config{Model: "gpt-4o", MaxConcurrent: 1000}, "test-key")
	if b == nil {
		t.Fatal("expected a non-nil backend")
	}
	if b.sem == nil {
		t.Fatal("expected a concurrency semaphore to be initialized")
	}
	if !b.sem.TryAcquire(MaxConcurrent) {
		t.Errorf("expected %d concurrency slots", MaxConcurrent)
	}
	if b.sem.TryAcquire(1) {
		t.Errorf("expected concurrency clamped to %d", MaxConcurrent)
	}
}

func TestNewDefaultsConcurrencyWhenUnset(t *testing.T) {
	b := New(Config{Model: "gpt-4o"}, "test-key")
	if b == nil {
		t.Fatal("expected a non-nil backend")
	}
	if !b.sem.TryAcquire(MaxConcurrent) {
		t.Errorf("expected %d concurrency slots by default", MaxConcurrent)
	}
	if b.sem.TryAcquire(1) {
		t.Errorf("expected default concurrency of %d", MaxConcurrent)
	}
}
