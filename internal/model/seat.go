package model

import (
    "fmt"
    "time"
)

// Seat describes a physical seat in a hall.  Within a screening a seat
// is identified either by its stable numeric ID or by its (Row, Number)
// position.
type Seat struct {
    ID     uint64 `json:"id"`      // seats.id
    HallID uint64 `json:"hall_id"` // seats.hall_id
    Row    uint32 `json:"row"`     // seats.row_index (1-based)
    Number uint32 `json:"number"`  // seats.seat_number (1-based)
}

// Label renders the seat position for logs and messages, e.g. "R3S12".
func (s Seat) Label() string { return fmt.Sprintf("R%dS%d", s.Row, s.Number) }

// Less orders seats by row, then by number.
func (s Seat) Less(o Seat) bool {
    if s.Row != o.Row {
        return s.Row < o.Row
    }
    return s.Number < o.Number
}

// SeatStatus is the lifecycle state of a seat within one screening.
type SeatStatus int

const (
    SeatFree SeatStatus = iota
    SeatHeld
    SeatReserved
)

func (s SeatStatus) String() string {
    switch s {
    case SeatHeld:
        return "HELD"
    case SeatReserved:
        return "RESERVED"
    default:
        return "FREE"
    }
}

// MarshalText lets SeatStatus appear as FREE/HELD/RESERVED in JSON.
func (s SeatStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// SeatState is the authoritative status of one seat for one screening.
// HolderToken and ExpiresAt are only meaningful while Status is
// SeatHeld; ReservationID only while Status is SeatReserved.
type SeatState struct {
    Seat
    Status        SeatStatus
    HolderToken   string
    ExpiresAt     time.Time
    ReservationID uint64
}

// ActiveHold reports whether the seat is held and the hold has not
// elapsed at now.
func (s SeatState) ActiveHold(now time.Time) bool {
    return s.Status == SeatHeld && now.Before(s.ExpiresAt)
}

// SeatView is a seat as presented to one caller: held flags are derived
// relative to the caller's token at read time.
type SeatView struct {
    ID           uint64 `json:"id"`
    Row          uint32 `json:"row"`
    Number       uint32 `json:"number"`
    IsReserved   bool   `json:"is_reserved"`
    IsHeld       bool   `json:"is_held"`
    HeldByCaller bool   `json:"held_by_me"`
}

// SeatMap is the seat-map read model for a screening.
type SeatMap struct {
    ScreeningID uint64     `json:"screening_id"`
    HallID      uint64     `json:"hall_id"`
    Version     uint64     `json:"version"`
    Seats       []SeatView `json:"seats"`
}
