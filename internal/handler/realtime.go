package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/templatehub/internal/realtime"
)

// RealtimeHandler upgrades authenticated requests to WebSocket clients of
// the hub.
type RealtimeHandler struct {
	Hub      *realtime.Hub
	Log      logrus.FieldLogger
	upgrader websocket.Upgrader
}

// NewRealtimeHandler accepts upgrades from allowedOrigins.  An empty list
// allows same-host origins only; "*" allows any origin.
func NewRealtimeHandler(hub *realtime.Hub, allowedOrigins []string, log logrus.FieldLogger) *RealtimeHandler {
	if hub == nil {
		panic("nil hub passed to NewRealtimeHandler")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	h := &RealtimeHandler{Hub: hub, Log: log}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := map[string]bool{}
	for _, o := range allowed {
		if o = strings.TrimSpace(o); o != "" {
			set[strings.ToLower(o)] = true
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || set["*"] {
			return true
		}
		if set[strings.ToLower(origin)] {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// Connect handles GET /v1/realtime?topics=templates,evaluations.  The
// caller's own notification topic is always subscribed.
func (h *RealtimeHandler) Connect(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.Log.WithError(err).WithField("user_id", uid).Debug("websocket upgrade")
		return nil
	}
	client := realtime.NewClient(h.Hub, conn, uid, realtime.ParseTopics(c.QueryParam("topics")))
	h.Hub.Register(client)
	go client.WritePump()
	client.ReadPump()
	return nil
}

// Presence handles GET /v1/realtime/presence.
func (h *RealtimeHandler) Presence(c echo.Context) error {
	ids, err := h.Hub.Online(c.Request().Context())
	if err != nil {
		return serverError("could not read presence", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"online": ids, "count": len(ids)})
}
