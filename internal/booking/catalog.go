package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/iliyamo/screening-seat-engine/internal/model"
)

// Catalog is the read-only view of screenings and hall layouts that the
// engine consumes.  Implementations return an error matching
// ErrNotFound when the screening or hall does not exist.
type Catalog interface {
	Screening(ctx context.Context, screeningID uint64) (model.Screening, error)
	Hall(ctx context.Context, hallID uint64) (model.Hall, error)
	HallSeats(ctx context.Context, hallID uint64) ([]model.Seat, error)
}

// StaticCatalog is an in-memory Catalog.  Halls get a generated grid of
// seats with ids assigned row by row.
type StaticCatalog struct {
	mu         sync.RWMutex
	screenings map[uint64]model.Screening
	halls      map[uint64]model.Hall
	seats      map[uint64][]model.Seat
	nextSeatID uint64
}

// NewStaticCatalog returns an empty catalog.
func NewStaticCatalog() *StaticCatalog {
	return &StaticCatalog{
		screenings: make(map[uint64]model.Screening),
		halls:      make(map[uint64]model.Hall),
		seats:      make(map[uint64][]model.Seat),
		nextSeatID: 1,
	}
}

// AddHall registers a hall and generates Rows x SeatsPerRow seats for it.
func (c *StaticCatalog) AddHall(h model.Hall) []model.Seat {
	c.mu.Lock()
	defer c.mu.Unlock()
	seats := make([]model.Seat, 0, h.TotalSeats())
	for row := uint32(1); row <= h.Rows; row++ {
		for num := uint32(1); num <= h.SeatsPerRow; num++ {
			seats = append(seats, model.Seat{ID: c.nextSeatID, HallID: h.ID, Row: row, Number: num})
			c.nextSeatID++
		}
	}
	c.halls[h.ID] = h
	c.seats[h.ID] = seats
	return append([]model.Seat(nil), seats...)
}

// AddScreening registers a screening.  Its hall must already exist.
func (c *StaticCatalog) AddScreening(s model.Screening) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.halls[s.HallID]; !ok {
		return notFoundf("hall %d", s.HallID)
	}
	c.screenings[s.ID] = s
	return nil
}

func (c *StaticCatalog) Screening(_ context.Context, screeningID uint64) (model.Screening, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.screenings[screeningID]
	if !ok {
		return model.Screening{}, notFoundf("screening %d", screeningID)
	}
	return s, nil
}

func (c *StaticCatalog) Hall(_ context.Context, hallID uint64) (model.Hall, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.halls[hallID]
	if !ok {
		return model.Hall{}, notFoundf("hall %d", hallID)
	}
	return h, nil
}

func (c *StaticCatalog) HallSeats(_ context.Context, hallID uint64) ([]model.Seat, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seats, ok := c.seats[hallID]
	if !ok {
		return nil, notFoundf("hall %d", hallID)
	}
	return append([]model.Seat(nil), seats...), nil
}

// sortSeats orders seats by row then number and rejects duplicate ids
// or positions, which would make the two seat mappings disagree.
func sortSeats(seats []model.Seat) error {
	sort.Slice(seats, func(i, j int) bool { return seats[i].Less(seats[j]) })
	ids := make(map[uint64]struct{}, len(seats))
	for i, s := range seats {
		if _, dup := ids[s.ID]; dup {
			return fmt.Errorf("duplicate seat id %d", s.ID)
		}
		ids[s.ID] = struct{}{}
		if i > 0 && seats[i-1].Row == s.Row && seats[i-1].Number == s.Number {
			return fmt.Errorf("duplicate seat position %s", s.Label())
		}
	}
	return nil
}
