package services

import (
	"context"
	"sync"
	"testing"
)

func TestEventStore_BlankIDSkipsDedup(t *testing.T) {
	s := &EventStore{DB: newServiceDB(t)}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		resv, err := s.Reserve(ctx, "ch1", "")
		if err != nil {
			t.Fatalf("reserve: %v", err)
		}
		if resv.Outcome != ReserveFresh {
			t.Fatalf("blank id must always be fresh, got %v", resv.Outcome)
		}
	}
	// StoreResponse on a blank id is a no-op, not an error.
	if err := s.StoreResponse(ctx, "ch1", "", "x"); err != nil {
		t.Fatalf("blank store: %v", err)
	}
}

func TestEventStore_FreshThenPendingThenReplay(t *testing.T) {
	s := &EventStore{DB: newServiceDB(t)}
	ctx := context.Background()

	resv, err := s.Reserve(ctx, "ch1", "evt1")
	if err != nil {
		t.Fatalf("first reserve: %v", err)
	}
	if resv.Outcome != ReserveFresh {
		t.Fatalf("first reserve must be fresh, got %v", resv.Outcome)
	}

	// Second delivery before a response is stored: in-flight duplicate.
	resv, err = s.Reserve(ctx, "ch1", "evt1")
	if err != nil {
		t.Fatalf("second reserve: %v", err)
	}
	if resv.Outcome != ReserveDuplicatePending {
		t.Fatalf("expected pending duplicate, got %v", resv.Outcome)
	}

	if err := s.StoreResponse(ctx, "ch1", "evt1", `{"status":"ok"}`); err != nil {
		t.Fatalf("store: %v", err)
	}

	// Third delivery replays the stored payload.
	resv, err = s.Reserve(ctx, "ch1", "evt1")
	if err != nil {
		t.Fatalf("third reserve: %v", err)
	}
	if resv.Outcome != ReserveDuplicateReplay {
		t.Fatalf("expected replay, got %v", resv.Outcome)
	}
	if resv.Payload != `{"status":"ok"}` {
		t.Fatalf("unexpected payload %q", resv.Payload)
	}
}

func TestEventStore_ScopedPerChannel(t *testing.T) {
	s := &EventStore{DB: newServiceDB(t)}
	ctx := context.Background()

	if resv, _ := s.Reserve(ctx, "ch1", "evt1"); resv.Outcome != ReserveFresh {
		t.Fatalf("ch1 reserve should be fresh")
	}
	if resv, _ := s.Reserve(ctx, "ch2", "evt1"); resv.Outcome != ReserveFresh {
		t.Fatalf("same event id on another channel must be independent")
	}
}

func TestEventStore_ConcurrentReserve_OneWinner(t *testing.T) {
	s := &EventStore{DB: newServiceDB(t)}
	ctx := context.Background()

	const n = 8
	outcomes := make([]ReserveOutcome, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			resv, err := s.Reserve(ctx, "ch1", "evt-race")
			outcomes[i] = resv.Outcome
			errs[i] = err
		}(i)
	}
	wg.Wait()

	fresh := 0
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("reserve %d: %v", i, errs[i])
		}
		if outcomes[i] == ReserveFresh {
			fresh++
		}
	}
	if fresh != 1 {
		t.Fatalf("exactly one caller must win the reservation, got %d", fresh)
	}
}
