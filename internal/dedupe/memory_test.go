package dedupe

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreMarksFirstDelivery(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.MarkIfFirst(ctx, "pi_1", time.Hour)
	if err != nil {
		t.Fatalf("MarkIfFirst: %v", err)
	}
	if !first {
		t.Error("first delivery reported as duplicate")
	}

	first, err = s.MarkIfFirst(ctx, "pi_1", time.Hour)
	if err != nil {
		t.Fatalf("MarkIfFirst: %v", err)
	}
	if first {
		t.Error("replay reported as first delivery")
	}
}

func TestMemoryStoreIndependentIDs(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if first, _ := s.MarkIfFirst(ctx, "pi_1", time.Hour); !first {
		t.Error("pi_1 reported as duplicate")
	}
	if first, _ := s.MarkIfFirst(ctx, "pi_2", time.Hour); !first {
		t.Error("pi_2 reported as duplicate")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if first, _ := s.MarkIfFirst(ctx, "pi_1", time.Millisecond); !first {
		t.Fatal("first delivery reported as duplicate")
	}
	time.Sleep(5 * time.Millisecond)

	first, err := s.MarkIfFirst(ctx, "pi_1", time.Hour)
	if err != nil {
		t.Fatalf("MarkIfFirst: %v", err)
	}
	if !first {
		t.Error("expired mark still treated as duplicate")
	}
}

func TestMemoryStoreRelease(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.MarkIfFirst(ctx, "pi_1", time.Hour)
	if err := s.Release(ctx, "pi_1"); err != nil {
		t.Fatalf("Release: %v", err)
	}

	if first, _ := s.MarkIfFirst(ctx, "pi_1", time.Hour); !first {
		t.Error("released id still treated as duplicate")
	}
}
