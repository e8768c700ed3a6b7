package handler

import (
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/screening-seat-engine/internal/booking"
    "github.com/iliyamo/screening-seat-engine/internal/middleware"
)

// ScreeningHandler exposes the seat map and the hold, release and reserve
// operations of a screening.  Callers identify themselves with an opaque
// client token, sent as client_id in the body or the X-Client-Id header.
type ScreeningHandler struct {
    Arbiter *booking.Arbiter
    Catalog booking.Catalog
}

// NewScreeningHandler constructs a ScreeningHandler.  Both dependencies
// must be non-nil.
func NewScreeningHandler(a *booking.Arbiter, cat booking.Catalog) *ScreeningHandler {
    if a == nil || cat == nil {
        panic("nil dependency passed to NewScreeningHandler")
    }
    return &ScreeningHandler{Arbiter: a, Catalog: cat}
}

type seatRequest struct {
    ClientID string   `json:"client_id"`
    SeatIDs  []uint64 `json:"seat_ids"`
}

type reserveRequest struct {
    seatRequest
    CustomerName  string `json:"customer_name"`
    CustomerEmail string `json:"customer_email"`
}

// token prefers the body value and falls back to the header.
func (r seatRequest) token(c echo.Context) string {
    if t := strings.TrimSpace(r.ClientID); t != "" {
        return t
    }
    return middleware.ClientID(c)
}

// GetScreening handles GET /v1/screenings/:id.  It returns the screening
// and its hall layout; seat statuses live on the seat-map endpoint.
func (h *ScreeningHandler) GetScreening(c echo.Context) error {
    id, ok := screeningID(c)
    if !ok {
        return invalidScreeningID(c)
    }
    ctx := c.Request().Context()
    s, err := h.Catalog.Screening(ctx, id)
    if err != nil {
        return writeError(c, err)
    }
    hall, err := h.Catalog.Hall(ctx, s.HallID)
    if err != nil {
        return writeError(c, err)
    }
    seats, err := h.Catalog.HallSeats(ctx, s.HallID)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "screening": s,
        "hall":      hall,
        "seats":     seats,
    })
}

// SeatMap handles GET /v1/screenings/:id/seat-map.  held_by_me is computed
// for the X-Client-Id of the request.
func (h *ScreeningHandler) SeatMap(c echo.Context) error {
    id, ok := screeningID(c)
    if !ok {
        return invalidScreeningID(c)
    }
    token := middleware.ClientID(c)
    if token == "" {
        token = strings.TrimSpace(c.QueryParam("client_id"))
    }
    m, err := h.Arbiter.SeatMap(c.Request().Context(), id, token)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, m)
}

// Hold handles POST /v1/screenings/:id/hold.  The listed seats become the
// caller's whole selection for the screening.  On contention it returns
// 409 with the seat_ids that could not be held.
func (h *ScreeningHandler) Hold(c echo.Context) error {
    id, ok := screeningID(c)
    if !ok {
        return invalidScreeningID(c)
    }
    var body seatRequest
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    res, err := h.Arbiter.Hold(c.Request().Context(), id, body.token(c), body.SeatIDs)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "ok":         true,
        "expires_at": res.ExpiresAt.UTC().Format(time.RFC3339),
        "seat_map":   res.SeatMap,
    })
}

// Release handles POST /v1/screenings/:id/release.  Seats the caller does
// not hold are ignored, so releasing twice is harmless.
func (h *ScreeningHandler) Release(c echo.Context) error {
    id, ok := screeningID(c)
    if !ok {
        return invalidScreeningID(c)
    }
    var body seatRequest
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    m, err := h.Arbiter.Release(c.Request().Context(), id, body.token(c), body.SeatIDs)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"ok": true, "seat_map": m})
}

// Reserve handles POST /v1/screenings/:id/reserve.  Every seat must be
// held by the caller; the reservation is all-or-nothing.
func (h *ScreeningHandler) Reserve(c echo.Context) error {
    id, ok := screeningID(c)
    if !ok {
        return invalidScreeningID(c)
    }
    var body reserveRequest
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    res, err := h.Arbiter.Reserve(c.Request().Context(), id, body.token(c), body.SeatIDs, body.CustomerName, body.CustomerEmail)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, res)
}
