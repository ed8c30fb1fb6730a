package dedupe

import (
	"context"
	"time"
)

// Store tracks which payment ids have already been fanned out, so upstream
// webhook retries do not duplicate rows or alert emails.
type Store interface {
	// MarkIfFirst records the id and returns true if it was not seen within
	// the TTL window. Returns false for replays.
	MarkIfFirst(ctx context.Context, id string, ttl time.Duration) (bool, error)
	// Release forgets the id so the next delivery is treated as first again.
	// Called after a failed fan-out, otherwise the upstream retry would be
	// dropped as a duplicate.
	Release(ctx context.Context, id string) error
}
