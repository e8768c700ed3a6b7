package handler

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/screening-seat-engine/internal/booking"
)

// writeError maps engine errors to HTTP responses.  Unavailable seats are
// reported back so the client can adjust its selection.
func writeError(c echo.Context, err error) error {
    var ue *booking.UnavailableError
    switch {
    case errors.As(err, &ue):
        return c.JSON(http.StatusConflict, echo.Map{"error": "seat unavailable", "seat_ids": ue.SeatIDs})
    case errors.Is(err, booking.ErrSeatUnavailable):
        return c.JSON(http.StatusConflict, echo.Map{"error": "seat unavailable"})
    case errors.Is(err, booking.ErrValidation):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    case errors.Is(err, booking.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
    default:
        c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
    }
}

// screeningID parses the :id path parameter.
func screeningID(c echo.Context) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    return id, err == nil && id > 0
}

func invalidScreeningID(c echo.Context) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid screening id"})
}
