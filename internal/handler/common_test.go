package handler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUserID(t *testing.T) {
	e := echo.New()
	for _, v := range []any{uint64(5), 5, int64(5), float64(5), "5"} {
		c := e.NewContext(nil, nil)
		c.Set("user_id", v)
		id, err := getUserID(c)
		require.NoError(t, err, "%T", v)
		assert.Equal(t, uint64(5), id)
	}
	for _, v := range []any{nil, uint64(0), -1, "abc"} {
		c := e.NewContext(nil, nil)
		c.Set("user_id", v)
		_, err := getUserID(c)
		assert.Error(t, err, "%v", v)
	}
}

func TestErrorHandlerWritesErrorField(t *testing.T) {
	e := newTestEcho()
	e.GET("/boom", func(echo.Context) error { return serverError("could not load", errors.New("db down")) })
	e.GET("/plain", func(echo.Context) error { return errors.New("secret detail") })

	rec := doJSON(e, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "could not load", decode(t, rec)["error"])
	assert.NotContains(t, rec.Body.String(), "db down")

	rec = doJSON(e, http.MethodGet, "/plain", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", decode(t, rec)["error"])

	rec = doJSON(e, http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", decode(t, rec)["error"])
}

func TestValidatorUsesJSONNames(t *testing.T) {
	type req struct {
		DisplayName string `json:"display_name" validate:"required"`
		Score       int    `json:"score" validate:"max=10"`
	}
	v := NewValidator()

	err := v.Validate(&req{Score: 3})
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
	assert.Equal(t, "display_name is required", he.Message)

	err = v.Validate(&req{DisplayName: "x", Score: 11})
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "score must be at most 10", he.Message)

	assert.NoError(t, v.Validate(&req{DisplayName: "x", Score: 10}))
}

func TestCleanList(t *testing.T) {
	assert.Equal(t, []string{"react", "go lang"}, cleanList([]string{" React ", "", "react", "go,lang"}))
	assert.Equal(t, []string{}, cleanList(nil))
}
