package api

import (
	"net/http"
	"strings"
	"time"

	"netifmgr/internal/pkg/logging"
	"netifmgr/internal/types"

	"github.com/gorilla/websocket"
)

const (
	// TopicNetworkUpdate carries a full hardware interface snapshot.
	TopicNetworkUpdate = "network-update"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Message is one websocket frame sent to clients.
type Message struct {
	Topic string                    `json:"topic"`
	Data  []types.HardwareInterface `json:"data"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     sameOrigin,
}

// sameOrigin accepts requests without Origin, from localhost, or from the served host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if strings.Contains(origin, "://localhost:") || strings.Contains(origin, "://127.0.0.1:") {
		return true
	}
	for _, scheme := range []string{"http://", "https://"} {
		if strings.HasPrefix(origin, scheme) {
			return strings.TrimPrefix(origin, scheme) == r.Host
		}
	}
	return false
}

// events streams the current snapshot and every later one until the client goes away.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithComponent("api").WithField("remote", r.RemoteAddr)

	sub := s.svc.Subscribe()
	defer sub.Close()

	initial, err := s.svc.ListInterfaces(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	if s.metrics != nil {
		s.metrics.Subscribers.Inc()
		defer s.metrics.Subscribers.Dec()
	}
	logger.Debug("Event subscriber connected")

	// Reads only serve control frames and detect the client closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(hw []types.HardwareInterface) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(Message{Topic: TopicNetworkUpdate, Data: hw}); err != nil {
			logger.WithError(err).Debug("Event write failed")
			return false
		}
		return true
	}

	if !send(initial) {
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case hw, ok := <-sub.Updates():
			if !ok || !send(hw) {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			logger.Debug("Event subscriber disconnected")
			return
		case <-r.Context().Done():
			return
		}
	}
}
