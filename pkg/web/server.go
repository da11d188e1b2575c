// Package web serves the monitoring surface: a JSON status endpoint with
// the pipeline and transport counters, and a websocket feed pushing the
// same snapshot periodically plus fault notifications.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/OpenMixerProject/AES50/pkg/config"
	"github.com/OpenMixerProject/AES50/pkg/engine"
	"github.com/OpenMixerProject/AES50/pkg/logger"
	"github.com/OpenMixerProject/AES50/pkg/transport"
)

// StatsSource exposes pipeline counters to the status server.
type StatsSource interface {
	Stats() engine.Stats
}

// Server is the monitoring HTTP server.
type Server struct {
	config     *config.Config
	logger     *logger.Logger
	httpServer *http.Server

	tx   StatsSource
	rx   StatsSource
	link *transport.UDP

	websocketHub *WebSocketHub
	startTime    time.Time

	mu      sync.RWMutex
	running bool
}

// Status is the payload served on /api/status and pushed over the
// websocket feed.
type Status struct {
	UptimeSeconds int64              `json:"uptime_seconds"`
	SampleRate    int                `json:"sample_rate"`
	Transmitter   *engine.Stats      `json:"transmitter,omitempty"`
	Receiver      *engine.Stats      `json:"receiver,omitempty"`
	Transport     *transport.Metrics `json:"transport,omitempty"`
}

// WebSocketHub manages websocket connections.
type WebSocketHub struct {
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	register  chan *websocket.Conn
	done      chan struct{}
	mu        sync.Mutex
	logger    *logger.Logger
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // monitoring only, no credentials involved
	},
}

// NewServer creates a monitoring server. tx, rx and link may each be nil
// when that half of the endpoint is not running.
func NewServer(cfg *config.Config, log *logger.Logger, tx, rx StatsSource, link *transport.UDP) *Server {
	hub := &WebSocketHub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 256),
		register:  make(chan *websocket.Conn),
		done:      make(chan struct{}),
		logger:    log.WithComponent("web.hub"),
	}
	return &Server{
		config:       cfg,
		logger:       log.WithComponent("web"),
		tx:           tx,
		rx:           rx,
		link:         link,
		websocketHub: hub,
		startTime:    time.Now(),
	}
}

// Start runs the server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if !s.config.Web.Enabled {
		s.logger.Info("web server disabled")
		return nil
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("web server already running")
	}
	s.running = true
	s.mu.Unlock()

	router := mux.NewRouter()
	router.HandleFunc("/api/status", s.handleStatus).Methods("GET")
	router.HandleFunc("/ws", s.handleWebSocket)

	addr := fmt.Sprintf("%s:%d", s.config.Web.Host, s.config.Web.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go s.websocketHub.run(ctx)
	go s.statusLoop(ctx)

	s.logger.Info("web server listening", logger.String("addr", addr))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

// status assembles the current snapshot.
func (s *Server) status() Status {
	st := Status{
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		SampleRate:    s.config.Audio.SampleRate,
	}
	if s.tx != nil {
		v := s.tx.Stats()
		st.Transmitter = &v
	}
	if s.rx != nil {
		v := s.rx.Stats()
		st.Receiver = &v
	}
	if s.link != nil {
		v := s.link.Metrics()
		st.Transport = &v
	}
	return st
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.status()); err != nil {
		s.logger.Error("encode status", logger.Error(err))
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", logger.Error(err))
		return
	}
	// A late upgrade racing shutdown must not block on a hub that has
	// already exited.
	select {
	case s.websocketHub.register <- conn:
	case <-s.websocketHub.done:
		_ = conn.Close()
	}
}

// statusLoop pushes a status snapshot to all websocket clients every two
// seconds.
func (s *Server) statusLoop(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.broadcastEvent("status", s.status())
		}
	}
}

// NotifyFault pushes a fault event to all websocket clients.
func (s *Server) NotifyFault(err error) {
	s.broadcastEvent("fault", err.Error())
}

func (s *Server) broadcastEvent(kind string, data interface{}) {
	payload, err := json.Marshal(map[string]interface{}{
		"type": kind,
		"data": data,
	})
	if err != nil {
		return
	}
	select {
	case s.websocketHub.broadcast <- payload:
	default:
	}
}

// run pumps hub registration and broadcast channels. Clients whose writes
// fail are dropped on the spot.
func (h *WebSocketHub) run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for conn := range h.clients {
				_ = conn.Close()
			}
			h.clients = make(map[*websocket.Conn]bool)
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()
			h.logger.Debug("websocket client connected")

		case message := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					delete(h.clients, conn)
					_ = conn.Close()
				}
			}
			h.mu.Unlock()
		}
	}
}
