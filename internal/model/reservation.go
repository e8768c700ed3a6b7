package model

import "time"

// ReservationConfirmed is the only reservation status in the engine.
const ReservationConfirmed = "CONFIRMED"

// Reservation records a finalized, permanent assignment of seats to a
// customer for one screening.  It is created only when the arbiter
// commits a reserve request and is immutable afterwards.
//
// Fields:
//  ID            – primary key identifier, assigned by the ledger.
//  ScreeningID   – screening being reserved.
//  CustomerName  – name given at checkout.
//  CustomerEmail – email given at checkout.
//  SeatIDs       – reserved seats ordered by row, then number.
//  Status        – always CONFIRMED.
//  CreatedAt     – when the ledger accepted the reservation.
type Reservation struct {
    ID            uint64    `json:"id"`             // reservations.id
    ScreeningID   uint64    `json:"screening"`      // reservations.screening_id
    CustomerName  string    `json:"customer_name"`  // reservations.customer_name
    CustomerEmail string    `json:"customer_email"` // reservations.customer_email
    SeatIDs       []uint64  `json:"seat_ids"`       // reserved_seats.seat_id
    Status        string    `json:"status"`         // reservations.status
    CreatedAt     time.Time `json:"created_at"`     // reservations.created_at
}
