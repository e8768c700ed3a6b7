package middleware

// identity.go resolves who is calling.  Seat holders are anonymous
// browsers that identify themselves with an opaque client token; admins
// carry a JWT whose subject is stored by JWTAuth.

import (
    "bytes"
    "encoding/json"
    "io"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
)

// ClientTokenHeader carries the caller's opaque hold token.
const ClientTokenHeader = "X-Client-Id"

const clientTokenKey = "client_id"

// maxPeekBytes bounds how much of a JSON body is read to find client_id.
const maxPeekBytes = 64 << 10

// ClientToken stores the caller's token in the context so handlers and
// the rate limiter agree on who is calling.  A client_id in a JSON body
// wins over the X-Client-Id header, same as in the seat handlers.
func ClientToken() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            tok := bodyClientID(c)
            if tok == "" {
                tok = strings.TrimSpace(c.Request().Header.Get(ClientTokenHeader))
            }
            if tok != "" {
                c.Set(clientTokenKey, tok)
            }
            return next(c)
        }
    }
}

// bodyClientID peeks at a JSON request body for client_id and puts the
// bytes back so the handler can still bind it.
func bodyClientID(c echo.Context) string {
    req := c.Request()
    if req.Body == nil || req.Body == http.NoBody {
        return ""
    }
    if !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
        return ""
    }
    head, err := io.ReadAll(io.LimitReader(req.Body, maxPeekBytes))
    req.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(head), req.Body), Closer: req.Body}
    if err != nil {
        return ""
    }
    var peek struct {
        ClientID string `json:"client_id"`
    }
    if json.Unmarshal(head, &peek) != nil {
        return ""
    }
    return strings.TrimSpace(peek.ClientID)
}

type readCloser struct {
    io.Reader
    io.Closer
}

// ClientID returns the token stored by ClientToken, or "" when the caller
// sent none.
func ClientID(c echo.Context) string {
    if s, ok := c.Get(clientTokenKey).(string); ok {
        return s
    }
    return ""
}

// userID returns the authenticated admin subject, or "anon".
func userID(c echo.Context) string {
    if s, ok := c.Get("user_id").(string); ok && s != "" {
        return s
    }
    return "anon"
}
