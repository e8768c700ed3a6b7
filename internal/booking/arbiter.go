package booking

import (
	"context"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/screening-seat-engine/internal/model"
)

// DefaultHoldTTL is how long a hold lives without being refreshed.
const DefaultHoldTTL = 2 * time.Minute

// Publisher receives every committed ChangeEvent.  Publish must not
// block: it is called while the screening is locked.
type Publisher interface {
	Publish(ev model.ChangeEvent)
}

// ReservationNotifier is told about reservations after they commit.
// Failures are logged and never affect the reservation.
type ReservationNotifier interface {
	ReservationConfirmed(ctx context.Context, r model.Reservation, seats []model.Seat) error
}

// HoldResult is the outcome of a successful Hold.
type HoldResult struct {
	SeatMap   model.SeatMap
	ExpiresAt time.Time
}

// Option configures an Arbiter.
type Option func(*Arbiter)

// WithHoldTTL sets the hold time-to-live.
func WithHoldTTL(d time.Duration) Option {
	return func(a *Arbiter) {
		if d > 0 {
			a.ttl = d
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Arbiter) { a.now = now }
}

// WithPublisher wires the change broadcaster.
func WithPublisher(p Publisher) Option {
	return func(a *Arbiter) { a.publisher = p }
}

// WithNotifier wires a post-commit reservation notifier.
func WithNotifier(n ReservationNotifier) Option {
	return func(a *Arbiter) { a.notifier = n }
}

// WithLedgerTimeout bounds a single ledger append.
func WithLedgerTimeout(d time.Duration) Option {
	return func(a *Arbiter) {
		if d > 0 {
			a.ledgerTimeout = d
		}
	}
}

// Arbiter serializes hold, release and reserve requests per screening.
// Operations on different screenings never contend; within a screening
// every mutation runs under that inventory's write lock.
type Arbiter struct {
	catalog       Catalog
	ledger        Ledger
	publisher     Publisher
	notifier      ReservationNotifier
	ttl           time.Duration
	ledgerTimeout time.Duration
	now           func() time.Time

	mu          sync.Mutex
	inventories map[uint64]*Inventory
}

// NewArbiter returns an Arbiter reading layouts from catalog and writing
// reservations to ledger.
func NewArbiter(catalog Catalog, ledger Ledger, opts ...Option) *Arbiter {
	a := &Arbiter{
		catalog:       catalog,
		ledger:        ledger,
		ttl:           DefaultHoldTTL,
		ledgerTimeout: 5 * time.Second,
		now:           func() time.Time { return time.Now().UTC() },
		inventories:   make(map[uint64]*Inventory),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// HoldTTL returns the configured hold time-to-live.
func (a *Arbiter) HoldTTL() time.Duration { return a.ttl }

// Inventory returns the inventory of a screening, creating it from the
// catalog and the ledger on first access.
func (a *Arbiter) Inventory(ctx context.Context, screeningID uint64) (*Inventory, error) {
	a.mu.Lock()
	inv := a.inventories[screeningID]
	a.mu.Unlock()
	if inv != nil {
		return inv, nil
	}

	screening, err := a.catalog.Screening(ctx, screeningID)
	if err != nil {
		return nil, err
	}
	seats, err := a.catalog.HallSeats(ctx, screening.HallID)
	if err != nil {
		return nil, err
	}
	reservations, err := a.ledger.ListByScreening(ctx, screeningID)
	if err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}
	built, err := newInventory(screening, seats, reservations)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if existing := a.inventories[screeningID]; existing != nil {
		return existing, nil
	}
	a.inventories[screeningID] = built
	return built, nil
}

// SeatMap returns a snapshot of the screening's seats relative to token.
func (a *Arbiter) SeatMap(ctx context.Context, screeningID uint64, token string) (model.SeatMap, error) {
	inv, err := a.Inventory(ctx, screeningID)
	if err != nil {
		return model.SeatMap{}, err
	}
	return inv.SeatMap(token, a.now()), nil
}

// Hold claims seatIDs for token.  The request replaces the token's
// previous selection in this screening: seats it held before but did
// not list again are released in the same commit.
func (a *Arbiter) Hold(ctx context.Context, screeningID uint64, token string, seatIDs []uint64) (HoldResult, error) {
	token, ids, err := normalizeRequest(token, seatIDs)
	if err != nil {
		return HoldResult{}, err
	}
	inv, err := a.Inventory(ctx, screeningID)
	if err != nil {
		return HoldResult{}, err
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()
	idx, err := inv.indexes(ids)
	if err != nil {
		return HoldResult{}, err
	}
	now := a.now()
	var conflicts []uint64
	for _, i := range idx {
		st := inv.seats[i]
		switch {
		case st.Status == model.SeatReserved:
			conflicts = append(conflicts, st.ID)
		case st.ActiveHold(now) && st.HolderToken != token:
			conflicts = append(conflicts, st.ID)
		}
	}
	if len(conflicts) > 0 {
		return HoldResult{}, &UnavailableError{SeatIDs: conflicts}
	}

	requested := make(map[int]struct{}, len(idx))
	for _, i := range idx {
		requested[i] = struct{}{}
	}
	for i, st := range inv.seats {
		if st.Status != model.SeatHeld || st.HolderToken != token {
			continue
		}
		if _, keep := requested[i]; !keep {
			inv.free(i)
		}
	}
	expiresAt := now.Add(a.ttl)
	for _, i := range idx {
		inv.hold(i, token, expiresAt)
	}
	inv.commit(a.publisher, now)
	return HoldResult{SeatMap: inv.seatMapLocked(token, now), ExpiresAt: expiresAt}, nil
}

// Release frees the listed seats that token currently holds.  Seats that
// are free, reserved, held by someone else or unknown are skipped.
func (a *Arbiter) Release(ctx context.Context, screeningID uint64, token string, seatIDs []uint64) (model.SeatMap, error) {
	token, ids, err := normalizeRequest(token, seatIDs)
	if err != nil {
		return model.SeatMap{}, err
	}
	inv, err := a.Inventory(ctx, screeningID)
	if err != nil {
		return model.SeatMap{}, err
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()
	now := a.now()
	changed := false
	for _, id := range ids {
		i, ok := inv.byID[id]
		if !ok {
			continue
		}
		st := inv.seats[i]
		if st.Status == model.SeatHeld && st.HolderToken == token {
			inv.free(i)
			changed = true
		}
	}
	if changed {
		inv.commit(a.publisher, now)
	}
	return inv.seatMapLocked(token, now), nil
}

// Reserve turns seats held by token into a confirmed reservation.  Every
// seat must currently be held by token with an unexpired hold.  The
// ledger append happens before any seat changes, so a failed append
// leaves the holds exactly as they were.
func (a *Arbiter) Reserve(ctx context.Context, screeningID uint64, token string, seatIDs []uint64, customerName, customerEmail string) (model.Reservation, error) {
	token, ids, err := normalizeRequest(token, seatIDs)
	if err != nil {
		return model.Reservation{}, err
	}
	name, email, err := normalizeCustomer(customerName, customerEmail)
	if err != nil {
		return model.Reservation{}, err
	}
	inv, err := a.Inventory(ctx, screeningID)
	if err != nil {
		return model.Reservation{}, err
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()
	idx, err := inv.indexes(ids)
	if err != nil {
		return model.Reservation{}, err
	}
	now := a.now()
	var conflicts []uint64
	for _, i := range idx {
		st := inv.seats[i]
		if !st.ActiveHold(now) || st.HolderToken != token {
			conflicts = append(conflicts, st.ID)
		}
	}
	if len(conflicts) > 0 {
		return model.Reservation{}, &UnavailableError{SeatIDs: conflicts}
	}

	res := model.Reservation{
		ScreeningID:   screeningID,
		CustomerName:  name,
		CustomerEmail: email,
		SeatIDs:       make([]uint64, 0, len(idx)),
		Status:        model.ReservationConfirmed,
	}
	seats := make([]model.Seat, 0, len(idx))
	for _, i := range idx {
		res.SeatIDs = append(res.SeatIDs, inv.seats[i].ID)
		seats = append(seats, inv.seats[i].Seat)
	}

	// The append is not cancelled with the caller once accepted.
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.ledgerTimeout)
	defer cancel()
	if err := a.ledger.Append(actx, &res); err != nil {
		return model.Reservation{}, fmt.Errorf("append reservation: %w", err)
	}
	for _, i := range idx {
		inv.reserve(i, res.ID)
	}
	inv.commit(a.publisher, now)

	if a.notifier != nil {
		go a.notify(res, seats)
	}
	return res, nil
}

func (a *Arbiter) notify(res model.Reservation, seats []model.Seat) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.notifier.ReservationConfirmed(ctx, res, seats); err != nil {
		log.Printf("booking: notify reservation %d: %v", res.ID, err)
	}
}

// Reservations lists the ledger entries of a screening.
func (a *Arbiter) Reservations(ctx context.Context, screeningID uint64) ([]model.Reservation, error) {
	if _, err := a.catalog.Screening(ctx, screeningID); err != nil {
		return nil, err
	}
	return a.ledger.ListByScreening(ctx, screeningID)
}

// ExpireHolds releases every hold that elapsed at now across all loaded
// screenings and returns how many seats were freed.
func (a *Arbiter) ExpireHolds(ctx context.Context, now time.Time) (int, error) {
	a.mu.Lock()
	invs := make([]*Inventory, 0, len(a.inventories))
	for _, inv := range a.inventories {
		invs = append(invs, inv)
	}
	a.mu.Unlock()

	released := 0
	for _, inv := range invs {
		if err := ctx.Err(); err != nil {
			return released, err
		}
		released += inv.expire(a.publisher, now)
	}
	return released, nil
}

func normalizeRequest(token string, seatIDs []uint64) (string, []uint64, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", nil, validationf("client_id is required")
	}
	if len(seatIDs) == 0 {
		return "", nil, validationf("seat_ids is required")
	}
	seen := make(map[uint64]struct{}, len(seatIDs))
	ids := make([]uint64, 0, len(seatIDs))
	for _, id := range seatIDs {
		if id == 0 {
			return "", nil, validationf("seat id 0 is invalid")
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return token, ids, nil
}

// Column widths of reservations.customer_name and customer_email.
const (
	maxCustomerName  = 200
	maxCustomerEmail = 254
)

func normalizeCustomer(name, email string) (string, string, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return "", "", validationf("customer_name is required")
	}
	if email == "" {
		return "", "", validationf("customer_email is required")
	}
	if utf8.RuneCountInString(name) > maxCustomerName {
		return "", "", validationf("customer_name is longer than %d characters", maxCustomerName)
	}
	if utf8.RuneCountInString(email) > maxCustomerEmail {
		return "", "", validationf("customer_email is longer than %d characters", maxCustomerEmail)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", "", validationf("customer_email %q is not a valid address", email)
	}
	return name, email, nil
}
