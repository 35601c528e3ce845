package middleware

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// currentUserID returns the authenticated user's id as a string, or "anon".
// Rate limit and log keys use it.
func currentUserID(c echo.Context) string {
    if id, ok := c.Get("user_id").(uint64); ok && id != 0 {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}

// authenticated reports whether JWTAuth or OptionalJWT accepted a token.
func authenticated(c echo.Context) bool {
    return currentUserID(c) != "anon"
}
