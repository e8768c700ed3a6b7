package model

// EventHoldUpdated is the kind of every ChangeEvent.  Subscribers treat
// it as a cue to re-fetch the seat map.
const EventHoldUpdated = "hold_updated"

// SeatStatusView is the caller-independent seat status carried by a
// ChangeEvent.  Holder tokens are never broadcast.
type SeatStatusView struct {
    ID     uint64     `json:"id"`
    Status SeatStatus `json:"status"`
}

// ChangeEvent is emitted after every committed mutation of a
// screening's seats.  Version increases with every commit, so a
// subscriber can tell when it skipped an event.
type ChangeEvent struct {
    Kind        string           `json:"event"`
    ScreeningID uint64           `json:"screening_id"`
    Version     uint64           `json:"version"`
    Seats       []SeatStatusView `json:"seats"`
}
