package middleware // middleware contains reusable HTTP middleware functions

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/templatehub/internal/utils"
)

// JWTAuth validates the access token and stores the bearer's id and role in
// the context under "user_id" (uint64) and "role" (string).  The token is
// read from the Authorization header; WebSocket upgrades may pass it as the
// access_token query parameter because browsers cannot set headers there.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw := bearer(c)
            if raw == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "User not authenticated"})
            }
            id, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            c.Set("user_id", id.UserID)
            c.Set("role", id.Role)
            return next(c)
        }
    }
}

// OptionalJWT behaves like JWTAuth when a valid token is present and lets
// anonymous requests through untouched.  Invalid tokens are still rejected.
func OptionalJWT(secret string) echo.MiddlewareFunc {
    strict := JWTAuth(secret)
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        withAuth := strict(next)
        return func(c echo.Context) error {
            if bearer(c) == "" {
                return next(c)
            }
            return withAuth(c)
        }
    }
}

func bearer(c echo.Context) string {
    req := c.Request()
    if auth := req.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
        return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
    }
    if strings.EqualFold(req.Header.Get("Upgrade"), "websocket") {
        return c.QueryParam("access_token")
    }
    return ""
}
