package webui

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/0h41/joykontrol/src/configuration"
	"github.com/0h41/joykontrol/src/engine"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

//go:embed static
var staticFiles embed.FS

// Engine is what the UI reads and changes
type Engine interface {
	Snapshot(ctx context.Context) (engine.State, error)
	SetButton(ctx context.Context, index int, button configuration.ButtonConfig) error
	SelectPort(ctx context.Context, index int) error
}

type client struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) write(message []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

type configUpdate struct {
	topic string
	data  interface{}
}

// clientMessage is any message a browser sends; which fields are set depends
// on Type
type clientMessage struct {
	Type     string `json:"type"`
	Index    *int   `json:"index"`
	Function string `json:"function"`
	Channel  int    `json:"channel"`
	Value    int    `json:"value"`
}

type WebUIServer struct {
	Addr           string
	log            zerolog.Logger
	upgrader       websocket.Upgrader
	clientsMu      sync.Mutex
	clients        map[*client]struct{}
	configUpdateCh chan configUpdate
	engine         Engine
	server         *http.Server
	stopChan       chan struct{}
	stopOnce       sync.Once
}

func NewWebUIServer(addr string, engine Engine) (*WebUIServer, error) {
	s := &WebUIServer{
		Addr: addr,
		log:  log.With().Str("module", "WebUI").Logger(),
		// no CheckOrigin: pages from other hosts are refused
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients:        make(map[*client]struct{}),
		configUpdateCh: make(chan configUpdate, 64),
		engine:         engine,
		stopChan:       make(chan struct{}),
	}

	// Create a file system with just the static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to create static filesystem: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(staticFS)))
	mux.HandleFunc("/ws", s.handleWebSocket)

	s.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *WebUIServer) Handler() http.Handler {
	return s.server.Handler
}

// Subscribe forwards configuration changes to connected clients
func (s *WebUIServer) Subscribe(config *configuration.ConfigManager) {
	for _, topic := range []string{
		configuration.TopicButtonUpdated,
		configuration.TopicTableReset,
		configuration.TopicPortSelected,
	} {
		config.Subscribe(topic, func(data interface{}) {
			s.NotifyConfigUpdate(topic, data)
		})
	}
}

// Start serves until Stop is called
func (s *WebUIServer) Start() error {
	go s.handleBroadcasts()

	s.log.Info().Msgf("Starting web server on %s", s.Addr)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *WebUIServer) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})

	s.clientsMu.Lock()
	for c := range s.clients {
		c.conn.Close()
	}
	s.clientsMu.Unlock()

	return s.server.Shutdown(ctx)
}

// buildStateMessage creates a message with the current table, device and ports
func (s *WebUIServer) buildStateMessage() ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	state, err := s.engine.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Type string `json:"type"`
		engine.State
	}{
		Type:  "state",
		State: state,
	})
}

func (s *WebUIServer) addClient(c *client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[c] = struct{}{}
}

func (s *WebUIServer) removeClient(c *client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	delete(s.clients, c)
}

func (s *WebUIServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Upgrade HTTP connection to WebSocket
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to upgrade to websocket")
		return
	}
	defer conn.Close()

	c := &client{id: uuid.NewString(), conn: conn}
	log := s.log.With().Str("client", c.id).Logger()

	s.addClient(c)
	defer s.removeClient(c)
	log.Info().Msgf("New WebSocket client connected: %s", conn.RemoteAddr())

	if err := c.write([]byte(`{"type":"welcome","message":"Connected to joykontrol"}`)); err != nil {
		log.Error().Err(err).Msg("Failed to send welcome message")
		return
	}

	// Handle client messages
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Info().Msgf("WebSocket client disconnected: %s", conn.RemoteAddr())
			return
		}
		log.Debug().Msgf("Received message: %s", string(message))

		var msg clientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Error().Err(err).Msg("Failed to parse client message")
			continue
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		switch msg.Type {
		case "getState":
			data, err := s.buildStateMessage()
			if err != nil {
				log.Error().Err(err).Msg("Failed to build state")
				break
			}
			if err := c.write(data); err != nil {
				log.Error().Err(err).Msg("Failed to send state to client")
				cancel()
				return
			}

		case "setButton":
			if msg.Index == nil {
				log.Error().Msg("setButton missing index")
				break
			}
			function, err := configuration.ParseButtonFunction(msg.Function)
			if err != nil {
				log.Error().Err(err).Msg("setButton with invalid function")
				break
			}
			button := configuration.ButtonConfig{
				Function: function,
				Channel:  uint8(lo.Clamp(msg.Channel, 0, 15)),
				Value:    uint8(lo.Clamp(msg.Value, 0, 127)),
			}
			if err := s.engine.SetButton(ctx, *msg.Index, button); err != nil {
				log.Error().Err(err).Int("index", *msg.Index).Msg("Failed to update button")
			}

		case "selectPort":
			if msg.Index == nil {
				log.Error().Msg("selectPort missing index")
				break
			}
			// failures are logged by the engine and show up as no selection
			_ = s.engine.SelectPort(ctx, *msg.Index)

		default:
			log.Debug().Str("type", msg.Type).Msg("Unknown message type")
		}
		cancel()
	}
}

func (s *WebUIServer) sendAll(message []byte) {
	s.clientsMu.Lock()
	clients := lo.Keys(s.clients)
	s.clientsMu.Unlock()

	s.log.Debug().Int("clientCount", len(clients)).Msg("Broadcasting message to WebSocket clients")
	for _, c := range clients {
		if err := c.write(message); err != nil {
			s.log.Error().Err(err).Str("client", c.id).Msg("Failed to send message to client")
			c.conn.Close()
			s.removeClient(c)
		}
	}
}

func (s *WebUIServer) handleBroadcasts() {
	for {
		select {
		case update := <-s.configUpdateCh:
			var data []byte
			var err error

			switch update.topic {
			case configuration.TopicButtonUpdated:
				data, err = json.Marshal(struct {
					Type string `json:"type"`
					configuration.ButtonUpdate
				}{
					Type:         "buttonUpdated",
					ButtonUpdate: update.data.(configuration.ButtonUpdate),
				})
			default:
				data, err = s.buildStateMessage()
			}
			if err != nil {
				s.log.Error().Err(err).Str("topic", update.topic).Msg("Failed to build update")
				continue
			}
			s.sendAll(data)

		case <-s.stopChan:
			return
		}
	}
}

// NotifyConfigUpdate queues a change for the clients. It never blocks; the
// update is dropped when the queue is full.
func (s *WebUIServer) NotifyConfigUpdate(topic string, data interface{}) {
	select {
	case s.configUpdateCh <- configUpdate{topic: topic, data: data}:
	default:
		s.log.Warn().Str("topic", topic).Msg("Update queue full, dropping update")
	}
}
