// Package queue carries confirmed reservations over RabbitMQ: a publisher
// the booking engine notifies after each commit and a consumer that
// appends every confirmation to a log file.
package queue

import (
    "time"

    "github.com/iliyamo/screening-seat-engine/internal/model"
)

// ReservationConfirmedEvent is published when a reservation is committed to
// the ledger.  It contains enough information for downstream consumers to
// log or notify without querying the primary database.
type ReservationConfirmedEvent struct {
    ReservationID uint64   `json:"reservation_id"`
    ScreeningID   uint64   `json:"screening_id"`
    CustomerName  string   `json:"customer_name"`
    CustomerEmail string   `json:"customer_email"`
    SeatIDs       []uint64 `json:"seat_ids"`
    SeatLabels    []string `json:"seats"`
    ConfirmedAt   string   `json:"confirmed_at"`
}

// NewReservationConfirmedEvent builds the wire event for r.
func NewReservationConfirmedEvent(r model.Reservation, seats []model.Seat) ReservationConfirmedEvent {
    labels := make([]string, 0, len(seats))
    for _, s := range seats {
        labels = append(labels, s.Label())
    }
    return ReservationConfirmedEvent{
        ReservationID: r.ID,
        ScreeningID:   r.ScreeningID,
        CustomerName:  r.CustomerName,
        CustomerEmail: r.CustomerEmail,
        SeatIDs:       append([]uint64(nil), r.SeatIDs...),
        SeatLabels:    labels,
        ConfirmedAt:   r.CreatedAt.UTC().Format(time.RFC3339),
    }
}
