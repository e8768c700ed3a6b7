package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/screening-seat-engine/internal/booking"
	"github.com/iliyamo/screening-seat-engine/internal/model"
)

func TestReservationRepo_AppendCommits(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	created := time.Date(2026, 3, 1, 18, 5, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reservations (screening_id, customer_name, customer_email, status)`)).
		WithArgs(uint64(7), "Ana", "ana@example.com", model.ReservationConfirmed).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reserved_seats (reservation_id, screening_id, seat_id) VALUES (?, ?, ?),(?, ?, ?)`)).
		WithArgs(uint64(42), uint64(7), uint64(3), uint64(42), uint64(7), uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT created_at FROM reservations WHERE id = ?`)).
		WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))
	mock.ExpectCommit()

	res := &model.Reservation{ScreeningID: 7, CustomerName: "Ana", CustomerEmail: "ana@example.com", SeatIDs: []uint64{3, 4}}
	if err := NewReservationRepo(db).Append(context.Background(), res); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if res.ID != 42 || !res.CreatedAt.Equal(created) || res.Status != model.ReservationConfirmed {
		t.Fatalf("reservation not populated: %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReservationRepo_DuplicateSeatRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO reservations`).WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec(`INSERT INTO reserved_seats`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '7-3' for key 'uq_screening_seat'"})
	mock.ExpectRollback()

	res := &model.Reservation{ScreeningID: 7, CustomerName: "Ana", CustomerEmail: "ana@example.com", SeatIDs: []uint64{3}}
	err = NewReservationRepo(db).Append(context.Background(), res)
	if !errors.Is(err, ErrConflict) || !errors.Is(err, booking.ErrSeatUnavailable) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if res.ID != 0 {
		t.Fatalf("id must stay unset on failure, got %d", res.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReservationRepo_ListByScreeningGroupsSeats(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	at := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	cols := []string{"id", "screening_id", "customer_name", "customer_email", "status", "created_at", "seat_id"}
	mock.ExpectQuery(`FROM reservations r\s+JOIN reserved_seats rs`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, 7, "Ana", "ana@example.com", "CONFIRMED", at, 3).
			AddRow(1, 7, "Ana", "ana@example.com", "CONFIRMED", at, 4).
			AddRow(2, 7, "Bo", "bo@example.com", "CONFIRMED", at, 9))

	got, err := NewReservationRepo(db).ListByScreening(context.Background(), 7)
	if err != nil {
		t.Fatalf("ListByScreening: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 reservations, got %d", len(got))
	}
	if len(got[0].SeatIDs) != 2 || got[0].SeatIDs[1] != 4 || got[1].SeatIDs[0] != 9 {
		t.Fatalf("seats not grouped: %+v", got)
	}
}

func TestReservationRepo_ListByScreeningEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`FROM reservations r`).
		WithArgs(uint64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "screening_id", "customer_name", "customer_email", "status", "created_at", "seat_id"}))

	got, err := NewReservationRepo(db).ListByScreening(context.Background(), 8)
	if err != nil {
		t.Fatalf("ListByScreening: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}
