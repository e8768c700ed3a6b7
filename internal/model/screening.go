package model

import "time"

// Screening is a scheduled showing of a movie in a hall.  It is
// read-only catalog data from the engine's perspective; the engine
// only needs it to resolve the hall and therefore the seat set.
//
// Fields:
//  ID         – primary key identifier.
//  HallID     – hall where the screening takes place.
//  MovieTitle – title shown to customers.
//  StartsAt   – when the screening begins (UTC).
//  EndsAt     – when the screening ends (UTC).
type Screening struct {
    ID         uint64    `json:"id"`          // screenings.id
    HallID     uint64    `json:"hall_id"`     // screenings.hall_id
    MovieTitle string    `json:"movie_title"` // screenings.title
    StartsAt   time.Time `json:"start_time"`  // screenings.starts_at
    EndsAt     time.Time `json:"end_time"`    // screenings.ends_at
}
