package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/screening-seat-engine/internal/booking"
	"github.com/iliyamo/screening-seat-engine/internal/model"
)

// ErrScreeningNotFound is returned when a screening lookup fails.
var ErrScreeningNotFound = errors.New("screening not found")

// ErrHallNotFound is returned when a hall lookup fails.
var ErrHallNotFound = errors.New("hall not found")

// CatalogRepo reads screenings and hall layouts from MySQL.  It
// satisfies booking.Catalog; lookups that find no row return errors
// matching both the repository sentinel and booking.ErrNotFound.
type CatalogRepo struct {
	db *sql.DB
}

// NewCatalogRepo constructs a CatalogRepo with the given DB handle.
func NewCatalogRepo(db *sql.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

var _ booking.Catalog = (*CatalogRepo)(nil)

// Screening retrieves a screening by its ID.
func (r *CatalogRepo) Screening(ctx context.Context, id uint64) (model.Screening, error) {
	const q = `SELECT id, hall_id, title, starts_at, ends_at FROM screenings WHERE id = ?`
	var s model.Screening
	err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.HallID, &s.MovieTitle, &s.StartsAt, &s.EndsAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Screening{}, notFound(ErrScreeningNotFound, id)
		}
		return model.Screening{}, err
	}
	return s, nil
}

// Hall retrieves a hall by its ID.
func (r *CatalogRepo) Hall(ctx context.Context, id uint64) (model.Hall, error) {
	const q = `SELECT id, name, seat_rows, seat_cols FROM halls WHERE id = ?`
	var h model.Hall
	err := r.db.QueryRowContext(ctx, q, id).Scan(&h.ID, &h.Name, &h.Rows, &h.SeatsPerRow)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Hall{}, notFound(ErrHallNotFound, id)
		}
		return model.Hall{}, err
	}
	return h, nil
}

// HallSeats returns every seat of a hall ordered by row, then number.
// A hall with no seats is reported as not found since nothing can be
// held in it.
func (r *CatalogRepo) HallSeats(ctx context.Context, hallID uint64) ([]model.Seat, error) {
	const q = `SELECT id, hall_id, row_index, seat_number
	           FROM seats
	           WHERE hall_id = ?
	           ORDER BY row_index, seat_number`
	rows, err := r.db.QueryContext(ctx, q, hallID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.HallID, &s.Row, &s.Number); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, notFound(ErrHallNotFound, hallID)
	}
	return out, nil
}

// notFound joins a repository sentinel with booking.ErrNotFound so both
// layers can match it.
func notFound(sentinel error, id uint64) error {
	return fmt.Errorf("%w: %w (id %d)", booking.ErrNotFound, sentinel, id)
}
