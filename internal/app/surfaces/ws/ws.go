package ws

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/francois-poidevin/stationtracker/internal/app"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait       = 5 * time.Second
	shutdownTimeout = 5 * time.Second
	// messages queued per client before it is considered stalled
	sendBuffer = 256
)

// Message - one rendering command as sent to browser map clients
type Message struct {
	Type   string         `json:"type"` // marker, append or reset
	ID     string         `json:"id"`
	Name   string         `json:"name,omitempty"`
	Lat    float64        `json:"lat,omitempty"`
	Lon    float64        `json:"lon,omitempty"`
	Sample *app.GeoSample `json:"sample,omitempty"`
}

// client - one browser connection, written only by its writePump
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// WSSurface broadcasts rendering commands to every connected websocket client.
// New clients first receive the last marker of each body. A client that can't
// keep up is dropped, it never slows the tracker down.
type WSSurface struct {
	Log     *logrus.Logger
	conf    Configuration
	metrics http.Handler

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	markers map[string]Message

	srv      *http.Server
	listener net.Listener
}

// New builds the surface. metrics, when not nil, is served on /metrics.
func New(log *logrus.Logger, conf Configuration, metrics http.Handler) *WSSurface {
	return &WSSurface{
		Log:     log,
		conf:    conf,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: map[*client]struct{}{},
		markers: map[string]Message{},
	}
}

// Router exposes the surface routes.
func (s *WSSurface) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleWebSocket)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}
	return r
}

// Init starts listening.
func (s *WSSurface) Init(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.conf.Listen)
	if err != nil {
		return err
	}
	s.listener = ln
	s.srv = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.Log.WithContext(ctx).WithFields(logrus.Fields{
		"listen": ln.Addr().String(),
	}).Info("Websocket surface listening")

	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.Log.WithFields(logrus.Fields{
				"Error": err,
			}).Error("Websocket surface stopped")
		}
	}()
	return nil
}

// Addr returns the listening address once Init succeeded.
func (s *WSSurface) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *WSSurface) SetMarkerPosition(ctx context.Context, body app.TrackedBody, sample app.GeoSample) error {
	msg := Message{Type: "marker", ID: body.ID, Name: body.DisplayName, Lat: sample.Latitude, Lon: sample.Longitude, Sample: &sample}
	s.mu.Lock()
	s.markers[body.ID] = msg
	s.mu.Unlock()
	return s.broadcast(msg)
}

func (s *WSSurface) AppendPathPoint(ctx context.Context, id string, lat, lon float64) error {
	return s.broadcast(Message{Type: "append", ID: id, Lat: lat, Lon: lon})
}

func (s *WSSurface) ResetPath(ctx context.Context, id string) error {
	return s.broadcast(Message{Type: "reset", ID: id})
}

func (s *WSSurface) Close() error {
	s.mu.Lock()
	for c := range s.clients {
		s.drop(c)
	}
	s.mu.Unlock()

	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// broadcast queues msg for every client without waiting on any of them.
func (s *WSSurface) broadcast(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			s.Log.WithFields(logrus.Fields{
				"remote": c.conn.RemoteAddr().String(),
			}).Warn("ws client too slow, dropped")
			s.drop(c)
		}
	}
	return nil
}

// drop has to be called with mu held. Closing send ends the writePump.
func (s *WSSurface) drop(c *client) {
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	close(c.send)
}

func (s *WSSurface) remove(c *client) {
	s.mu.Lock()
	s.drop(c)
	s.mu.Unlock()
}

func (s *WSSurface) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.WithContext(r.Context()).WithFields(logrus.Fields{
			"Error": err,
		}).Warn("ws upgrade error")
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	s.mu.Lock()
	ids := make([]string, 0, len(s.markers))
	for id := range s.markers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		data, err := json.Marshal(s.markers[id])
		if err != nil {
			s.Log.WithContext(r.Context()).WithFields(logrus.Fields{
				"body":  id,
				"Error": err,
			}).Error("Unable to encode marker")
			continue
		}
		select {
		case c.send <- data:
		default:
		}
	}
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	go s.writePump(c)
	go s.readPump(c)
}

func (s *WSSurface) writePump(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.remove(c)
			return
		}
	}
}

// readPump drains the client until it goes away.
func (s *WSSurface) readPump(c *client) {
	defer func() {
		s.remove(c)
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
