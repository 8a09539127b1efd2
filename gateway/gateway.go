// Package gateway streams engine notifications to websocket clients for
// dashboards and acquisition viewers. Each client chooses a filter via
// query parameters (?category=data or ?kind=DataStored) and receives
// wire-format JSON frames. A client that falls behind loses frames rather
// than backing up the engine; it is not disconnected.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/c360/exengine/notification"
)

// Subscriber is the slice of the engine the gateway needs
type Subscriber interface {
	SubscribeToNotifications(h notification.Handler, f notification.Filter) *notification.Subscription
	UnsubscribeFromNotifications(sub *notification.Subscription)
}

// clientQueueDepth bounds the per-client send queue; frames for a client
// that falls this far behind are dropped
const clientQueueDepth = 256

// Server is the websocket notification gateway
type Server struct {
	addr          string
	source        Subscriber
	logger        *slog.Logger
	ratePerSecond float64

	upgrader websocket.Upgrader

	mu     sync.Mutex
	server *http.Server
}

// NewServer creates a gateway bound to addr. ratePerSecond caps
// notifications delivered to each client; zero means unlimited.
func NewServer(addr string, source Subscriber, ratePerSecond float64, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:          addr,
		source:        source,
		logger:        logger,
		ratePerSecond: ratePerSecond,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// Start begins serving websocket connections at /notifications
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/notifications", s.handleNotifications)

	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("gateway server error", "error", err)
		}
	}()
	return nil
}

// Stop shuts the gateway down, closing all client connections
func (s *Server) Stop(timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	err := s.server.Shutdown(ctx)
	s.server = nil
	return err
}

// filterFromQuery builds the subscription filter a client asked for
func filterFromQuery(r *http.Request) notification.Filter {
	if kind := r.URL.Query().Get("kind"); kind != "" {
		return notification.ByKind(kind)
	}
	switch r.URL.Query().Get("category") {
	case "event":
		return notification.ByCategory(notification.CategoryEvent)
	case "data":
		return notification.ByCategory(notification.CategoryData)
	case "storage":
		return notification.ByCategory(notification.CategoryStorage)
	case "device":
		return notification.ByCategory(notification.CategoryDevice)
	}
	return nil
}

// handleNotifications upgrades the connection and streams notifications
// until the client disconnects
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	var limiter *rate.Limiter
	if s.ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.ratePerSecond), int(s.ratePerSecond)+1)
	}

	// per-client queue so the bus dispatch goroutine never blocks on a
	// slow socket
	queue := make(chan notification.Notification, clientQueueDepth)
	sub := s.source.SubscribeToNotifications(func(n notification.Notification) {
		if limiter != nil && !limiter.Allow() {
			return
		}
		select {
		case queue <- n:
		default:
			// client has fallen clientQueueDepth behind; shed the frame
			s.logger.Debug("gateway client lagging, frame dropped", "remote", r.RemoteAddr)
		}
	}, filterFromQuery(r))

	done := make(chan struct{})

	// writer: drain the queue onto the socket
	go func() {
		defer conn.Close()
		for {
			select {
			case n := <-queue:
				frame, err := json.Marshal(n)
				if err != nil {
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	// reader: block until the client goes away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	close(done)
	s.source.UnsubscribeFromNotifications(sub)
	s.logger.Debug("gateway client disconnected", "remote", r.RemoteAddr)
}
