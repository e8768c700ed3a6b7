package handler

import (
    "crypto/subtle"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/screening-seat-engine/internal/booking"
    "github.com/iliyamo/screening-seat-engine/internal/realtime"
    "github.com/iliyamo/screening-seat-engine/internal/utils"
)

// AdminHandler serves the operator surface: login and the reservation
// ledger of a screening.
type AdminHandler struct {
    Arbiter      *booking.Arbiter
    Hub          *realtime.Hub
    Username     string
    PasswordHash string // bcrypt; empty disables login
    JWTSecret    string
    AccessTTL    time.Duration
}

// Login handles POST /v1/admin/login.  It checks the configured admin
// credentials and returns a short-lived access token.
func (h *AdminHandler) Login(c echo.Context) error {
    if h.PasswordHash == "" {
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "admin login disabled"})
    }
    var body struct {
        Username string `json:"username"`
        Password string `json:"password"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.Username == "" || body.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "username and password are required"})
    }
    userOK := subtle.ConstantTimeCompare([]byte(body.Username), []byte(h.Username)) == 1
    // always run bcrypt so a wrong username costs the same as a wrong password
    passOK := utils.VerifyPassword(h.PasswordHash, body.Password)
    if !userOK || !passOK {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }
    tok, err := utils.NewAccessToken(h.JWTSecret, h.Username, utils.RoleAdmin, h.AccessTTL)
    if err != nil {
        c.Logger().Errorf("issue access token: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue token"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "access_token": tok.Token,
        "token_type":   "Bearer",
        "expires_at":   tok.Exp.Format(time.RFC3339),
    })
}

// Reservations handles GET /v1/admin/screenings/:id/reservations.
func (h *AdminHandler) Reservations(c echo.Context) error {
    id, ok := screeningID(c)
    if !ok {
        return invalidScreeningID(c)
    }
    list, err := h.Arbiter.Reservations(c.Request().Context(), id)
    if err != nil {
        return writeError(c, err)
    }
    resp := echo.Map{
        "screening_id": id,
        "count":        len(list),
        "reservations": list,
    }
    if h.Hub != nil {
        resp["live_subscribers"] = h.Hub.Subscribers(id)
    }
    return c.JSON(http.StatusOK, resp)
}
