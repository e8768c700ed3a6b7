package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "golang.org/x/net/websocket"

    "github.com/iliyamo/screening-seat-engine/internal/booking"
    "github.com/iliyamo/screening-seat-engine/internal/realtime"
)

// LiveHandler streams a screening's ChangeEvents over a websocket.
type LiveHandler struct {
    Hub          *realtime.Hub
    Arbiter      *booking.Arbiter
    WriteTimeout time.Duration
}

// NewLiveHandler constructs a LiveHandler.
func NewLiveHandler(hub *realtime.Hub, a *booking.Arbiter) *LiveHandler {
    return &LiveHandler{Hub: hub, Arbiter: a, WriteTimeout: 10 * time.Second}
}

// Stream handles GET /ws/screenings/:id/.  Every committed change of the
// screening is sent as one JSON text frame.  Closing the socket only ends
// the subscription; holds are left to expire or be released.
func (h *LiveHandler) Stream(c echo.Context) error {
    id, ok := screeningID(c)
    if !ok {
        return invalidScreeningID(c)
    }
    // Reject unknown screenings before upgrading.
    if _, err := h.Arbiter.Inventory(c.Request().Context(), id); err != nil {
        return writeError(c, err)
    }
    srv := websocket.Server{
        // Browsers on other origins are expected; the stream carries no
        // per-client data.
        Handshake: func(*websocket.Config, *http.Request) error { return nil },
        Handler:   func(ws *websocket.Conn) { h.serve(ws, id) },
    }
    srv.ServeHTTP(c.Response(), c.Request())
    return nil
}

func (h *LiveHandler) serve(ws *websocket.Conn, id uint64) {
    defer ws.Close()
    sub := h.Hub.Subscribe(id)
    defer h.Hub.Unsubscribe(sub)

    // Inbound frames are ignored; the read loop only notices disconnects.
    gone := make(chan struct{})
    go func() {
        defer close(gone)
        var discard string
        for {
            if err := websocket.Message.Receive(ws, &discard); err != nil {
                return
            }
        }
    }()

    for {
        select {
        case <-gone:
            return
        case ev, ok := <-sub.Events:
            if !ok {
                return
            }
            if h.WriteTimeout > 0 {
                _ = ws.SetWriteDeadline(time.Now().Add(h.WriteTimeout))
            }
            if err := websocket.JSON.Send(ws, ev); err != nil {
                return
            }
        }
    }
}
