package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/screening-seat-engine/internal/booking"
	"github.com/iliyamo/screening-seat-engine/internal/model"
)

// mysqlDuplicateEntry is the server error number for a UNIQUE violation.
const mysqlDuplicateEntry = 1062

// ReservationRepo is the MySQL reservation ledger.  A reservation is a
// row in reservations plus one row per seat in reserved_seats; the
// UNIQUE (screening_id, seat_id) key on reserved_seats guarantees a
// seat is never finalized twice even across processes.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

var _ booking.Ledger = (*ReservationRepo)(nil)

// Append inserts the reservation and its seats in one transaction.  On
// success ID and CreatedAt are populated.  A seat that is already
// reserved yields an error matching ErrConflict and
// booking.ErrSeatUnavailable; nothing is written in that case.
func (r *ReservationRepo) Append(ctx context.Context, res *model.Reservation) error {
	if len(res.SeatIDs) == 0 {
		return errors.New("reservation without seats")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	id, err := r.createTx(ctx, tx, res)
	if err != nil {
		return err
	}
	if err := r.createSeatsBulkTx(ctx, tx, id, res.ScreeningID, res.SeatIDs); err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("%w: %w: seats of screening %d already reserved", booking.ErrSeatUnavailable, ErrConflict, res.ScreeningID)
		}
		return err
	}
	const sel = `SELECT created_at FROM reservations WHERE id = ?`
	if err := tx.QueryRowContext(ctx, sel, id).Scan(&res.CreatedAt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	res.ID = id
	return nil
}

func (r *ReservationRepo) createTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) (uint64, error) {
	const q = `INSERT INTO reservations (screening_id, customer_name, customer_email, status) VALUES (?, ?, ?, ?)`
	status := res.Status
	if status == "" {
		status = model.ReservationConfirmed
	}
	result, err := tx.ExecContext(ctx, q, res.ScreeningID, res.CustomerName, res.CustomerEmail, status)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	res.Status = status
	return uint64(id), nil
}

// createSeatsBulkTx inserts all reserved_seats rows in a single statement.
func (r *ReservationRepo) createSeatsBulkTx(ctx context.Context, tx *sql.Tx, reservationID, screeningID uint64, seatIDs []uint64) error {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO reserved_seats (reservation_id, screening_id, seat_id) VALUES `)
	args := make([]interface{}, 0, len(seatIDs)*3)
	for i, seatID := range seatIDs {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?)")
		args = append(args, reservationID, screeningID, seatID)
	}
	_, err := tx.ExecContext(ctx, sb.String(), args...)
	return err
}

// ListByScreening returns the reservations of a screening ordered by id,
// each with its seats in the order they were reserved.
func (r *ReservationRepo) ListByScreening(ctx context.Context, screeningID uint64) ([]model.Reservation, error) {
	const q = `SELECT r.id, r.screening_id, r.customer_name, r.customer_email, r.status, r.created_at, rs.seat_id
	           FROM reservations r
	           JOIN reserved_seats rs ON rs.reservation_id = r.id
	           WHERE r.screening_id = ?
	           ORDER BY r.id, rs.id`
	rows, err := r.db.QueryContext(ctx, q, screeningID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Reservation{}
	for rows.Next() {
		var (
			res    model.Reservation
			seatID uint64
		)
		if err := rows.Scan(&res.ID, &res.ScreeningID, &res.CustomerName, &res.CustomerEmail, &res.Status, &res.CreatedAt, &seatID); err != nil {
			return nil, err
		}
		if n := len(out); n > 0 && out[n-1].ID == res.ID {
			out[n-1].SeatIDs = append(out[n-1].SeatIDs, seatID)
			continue
		}
		res.SeatIDs = []uint64{seatID}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
