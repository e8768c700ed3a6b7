package middleware // middleware provides shared request processing for handlers

import (
    "net/http" // http package defines standard HTTP status codes

    "github.com/labstack/echo/v4" // echo provides middleware chaining and context
)

// RequireRole returns a middleware that lets a request through only when
// the role stored by JWTAuth is one of roles.  Everything else gets 403
// Forbidden, including requests that never passed through JWTAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    // Set of accepted roles; the value is always true when present.
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // JWTAuth stores the role as a string; a missing value or a
            // different type is treated the same as a wrong role.
            role, ok := c.Get("role").(string)
            if !ok || !allowed[role] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            // Otherwise call the next handler in the chain
            return next(c)
        }
    }
}
