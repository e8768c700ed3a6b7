package model

// Hall represents a screening hall and its rectangular seat layout.
// The layout is fixed once the hall exists; the engine reads it from
// the catalog and never changes it.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – human readable hall name.
//  Rows        – number of seating rows (1-based).
//  SeatsPerRow – number of seats in every row (1-based).
type Hall struct {
    ID          uint64 `json:"id"`            // halls.id
    Name        string `json:"name"`          // halls.name
    Rows        uint32 `json:"total_rows"`    // halls.seat_rows
    SeatsPerRow uint32 `json:"seats_per_row"` // halls.seat_cols
}

// TotalSeats returns the number of seats described by the layout.
func (h Hall) TotalSeats() int { return int(h.Rows) * int(h.SeatsPerRow) }
