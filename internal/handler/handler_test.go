package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/templatehub/internal/realtime"
)

type emitted struct {
	Topic  string
	Type   realtime.EventType
	ID     uint64
	Record any
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []emitted
}

func (f *fakeEmitter) Emit(topic string, typ realtime.EventType, id uint64, record any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emitted{Topic: topic, Type: typ, ID: id, Record: record})
}

type sentNotification struct {
	UserID uint64
	Kind   string
	Title  string
	Body   string
}

type sentEmail struct {
	UserID uint64
	Kind   string
	Data   any
}

type fakeNotifier struct {
	mu            sync.Mutex
	notifications []sentNotification
	emails        []sentEmail
}

func (f *fakeNotifier) Notify(_ context.Context, userID uint64, kind, title, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, sentNotification{UserID: userID, Kind: kind, Title: title, Body: body})
}

func (f *fakeNotifier) Email(_ context.Context, userID uint64, kind string, data func(name string) any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emails = append(f.emails, sentEmail{UserID: userID, Kind: kind, Data: data("Ada")})
}

// newTestEcho mirrors the router's Echo setup.
func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler
	return e
}

// as authenticates every request of a route the way JWTAuth would.
func as(userID uint64, role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", userID)
			c.Set("role", role)
			return next(c)
		}
	}
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}
