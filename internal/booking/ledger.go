package booking

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/screening-seat-engine/internal/model"
)

// Ledger is the durable, append-only store of finalized reservations.
// Append assigns ID and CreatedAt on success.  The arbiter calls Append
// before it marks any seat reserved, so a failed Append leaves no trace.
type Ledger interface {
	Append(ctx context.Context, r *model.Reservation) error
	ListByScreening(ctx context.Context, screeningID uint64) ([]model.Reservation, error)
}

// MemoryLedger keeps reservations in process memory.
type MemoryLedger struct {
	mu     sync.RWMutex
	nextID uint64
	byID   map[uint64]model.Reservation
	order  map[uint64][]uint64 // screening id -> reservation ids in append order
	now    func() time.Time
}

// NewMemoryLedger returns an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		nextID: 1,
		byID:   make(map[uint64]model.Reservation),
		order:  make(map[uint64][]uint64),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (l *MemoryLedger) Append(ctx context.Context, r *model.Reservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	r.ID = l.nextID
	l.nextID++
	r.CreatedAt = l.now()
	stored := *r
	stored.SeatIDs = append([]uint64(nil), r.SeatIDs...)
	l.byID[r.ID] = stored
	l.order[r.ScreeningID] = append(l.order[r.ScreeningID], r.ID)
	return nil
}

func (l *MemoryLedger) ListByScreening(ctx context.Context, screeningID uint64) ([]model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := l.order[screeningID]
	out := make([]model.Reservation, 0, len(ids))
	for _, id := range ids {
		r := l.byID[id]
		r.SeatIDs = append([]uint64(nil), r.SeatIDs...)
		out = append(out, r)
	}
	return out, nil
}
