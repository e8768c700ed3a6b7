package booking

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/screening-seat-engine/internal/model"
)

type position struct {
	row, number uint32
}

// Inventory is the authoritative seat state of one screening.  The seat
// set is fixed at creation from the hall layout; only statuses change,
// and only through the Arbiter while it holds mu for writing.
type Inventory struct {
	screeningID uint64
	hallID      uint64

	mu         sync.RWMutex
	seats      []model.SeatState // ordered by row, then number
	byID       map[uint64]int
	byPosition map[position]int
	version    uint64
	held       int // number of seats currently in SeatHeld
}

// newInventory builds the inventory of a screening from its hall seats
// and replays the reservations already persisted for it.
func newInventory(screening model.Screening, seats []model.Seat, reservations []model.Reservation) (*Inventory, error) {
	if err := sortSeats(seats); err != nil {
		return nil, fmt.Errorf("screening %d layout: %w", screening.ID, err)
	}
	inv := &Inventory{
		screeningID: screening.ID,
		hallID:      screening.HallID,
		seats:       make([]model.SeatState, len(seats)),
		byID:        make(map[uint64]int, len(seats)),
		byPosition:  make(map[position]int, len(seats)),
	}
	for i, s := range seats {
		inv.seats[i] = model.SeatState{Seat: s, Status: model.SeatFree}
		inv.byID[s.ID] = i
		inv.byPosition[position{s.Row, s.Number}] = i
	}
	for _, r := range reservations {
		for _, id := range r.SeatIDs {
			i, ok := inv.byID[id]
			if !ok {
				return nil, fmt.Errorf("reservation %d references seat %d outside hall %d", r.ID, id, inv.hallID)
			}
			if inv.seats[i].Status == model.SeatReserved {
				return nil, fmt.Errorf("seat %d reserved twice (reservations %d and %d)", id, inv.seats[i].ReservationID, r.ID)
			}
			inv.seats[i].Status = model.SeatReserved
			inv.seats[i].ReservationID = r.ID
		}
	}
	return inv, nil
}

// ScreeningID returns the screening this inventory belongs to.
func (inv *Inventory) ScreeningID() uint64 { return inv.screeningID }

// HallID returns the hall whose layout the inventory was built from.
func (inv *Inventory) HallID() uint64 { return inv.hallID }

// Version returns the number of commits applied so far.
func (inv *Inventory) Version() uint64 {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.version
}

// Seats returns a copy of every seat ordered by row, then number.
func (inv *Inventory) Seats() []model.SeatState {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return append([]model.SeatState(nil), inv.seats...)
}

// Seat looks a seat up by id.
func (inv *Inventory) Seat(id uint64) (model.SeatState, bool) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	i, ok := inv.byID[id]
	if !ok {
		return model.SeatState{}, false
	}
	return inv.seats[i], true
}

// SeatAt looks a seat up by its display position.
func (inv *Inventory) SeatAt(row, number uint32) (model.SeatState, bool) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	i, ok := inv.byPosition[position{row, number}]
	if !ok {
		return model.SeatState{}, false
	}
	return inv.seats[i], true
}

// SeatMap returns the seat map as seen by token at now.
func (inv *Inventory) SeatMap(token string, now time.Time) model.SeatMap {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.seatMapLocked(token, now)
}

func (inv *Inventory) seatMapLocked(token string, now time.Time) model.SeatMap {
	out := model.SeatMap{
		ScreeningID: inv.screeningID,
		HallID:      inv.hallID,
		Version:     inv.version,
		Seats:       make([]model.SeatView, len(inv.seats)),
	}
	for i, st := range inv.seats {
		held := st.ActiveHold(now)
		out.Seats[i] = model.SeatView{
			ID:           st.ID,
			Row:          st.Row,
			Number:       st.Number,
			IsReserved:   st.Status == model.SeatReserved,
			IsHeld:       held,
			HeldByCaller: held && token != "" && st.HolderToken == token,
		}
	}
	return out
}

// indexes resolves seat ids to positions in inv.seats, ascending.
// Unknown ids are reported together as ErrNotFound.
func (inv *Inventory) indexes(ids []uint64) ([]int, error) {
	out := make([]int, 0, len(ids))
	var missing []uint64
	for _, id := range ids {
		i, ok := inv.byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		out = append(out, i)
	}
	if len(missing) > 0 {
		return nil, notFoundf("seats %v do not belong to hall %d", missing, inv.hallID)
	}
	sort.Ints(out)
	return out, nil
}

func (inv *Inventory) hold(i int, token string, expiresAt time.Time) {
	st := &inv.seats[i]
	if st.Status != model.SeatHeld {
		inv.held++
	}
	st.Status = model.SeatHeld
	st.HolderToken = token
	st.ExpiresAt = expiresAt
}

func (inv *Inventory) free(i int) {
	st := &inv.seats[i]
	if st.Status == model.SeatHeld {
		inv.held--
	}
	st.Status = model.SeatFree
	st.HolderToken = ""
	st.ExpiresAt = time.Time{}
}

func (inv *Inventory) reserve(i int, reservationID uint64) {
	st := &inv.seats[i]
	if st.Status == model.SeatHeld {
		inv.held--
	}
	st.Status = model.SeatReserved
	st.HolderToken = ""
	st.ExpiresAt = time.Time{}
	st.ReservationID = reservationID
}

// commit bumps the version and publishes the resulting event.  It runs
// under the write lock so subscribers see events in commit order.
func (inv *Inventory) commit(p Publisher, now time.Time) {
	inv.version++
	if p != nil {
		p.Publish(inv.changeEventLocked(now))
	}
}

func (inv *Inventory) changeEventLocked(now time.Time) model.ChangeEvent {
	ev := model.ChangeEvent{
		Kind:        model.EventHoldUpdated,
		ScreeningID: inv.screeningID,
		Version:     inv.version,
		Seats:       make([]model.SeatStatusView, len(inv.seats)),
	}
	for i, st := range inv.seats {
		status := st.Status
		if status == model.SeatHeld && !st.ActiveHold(now) {
			status = model.SeatFree
		}
		ev.Seats[i] = model.SeatStatusView{ID: st.ID, Status: status}
	}
	return ev
}

type dueHold struct {
	index     int
	holder    string
	expiresAt time.Time
}

// expire releases holds that elapsed at now.  Candidates are collected
// under the read lock and released under the write lock only if the
// seat still carries the exact hold that was observed.
func (inv *Inventory) expire(p Publisher, now time.Time) int {
	due := inv.dueHolds(now)
	if len(due) == 0 {
		return 0
	}
	return inv.releaseDue(p, now, due)
}

func (inv *Inventory) dueHolds(now time.Time) []dueHold {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	if inv.held == 0 {
		return nil
	}
	var due []dueHold
	for i, st := range inv.seats {
		if st.Status == model.SeatHeld && !now.Before(st.ExpiresAt) {
			due = append(due, dueHold{index: i, holder: st.HolderToken, expiresAt: st.ExpiresAt})
		}
	}
	return due
}

func (inv *Inventory) releaseDue(p Publisher, now time.Time, due []dueHold) int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	released := 0
	for _, d := range due {
		st := inv.seats[d.index]
		if st.Status != model.SeatHeld || st.HolderToken != d.holder || !st.ExpiresAt.Equal(d.expiresAt) {
			continue // re-held or reserved since it was observed
		}
		inv.free(d.index)
		released++
	}
	if released > 0 {
		inv.commit(p, now)
	}
	return released
}
