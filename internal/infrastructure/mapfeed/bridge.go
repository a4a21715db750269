// Package mapfeed bridges the map surface over a websocket: marker, route
// and viewport commands stream out as JSON frames, marker clicks stream
// back in. The socket doubles as the connectivity signal.
package mapfeed

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wayfarer/v2/internal/domain/geo"
	"github.com/wayfarer/v2/internal/infrastructure/monitoring"
	"github.com/wayfarer/v2/internal/ports/outbound"
)

// Frame is one JSON message in either direction.
type Frame struct {
	Type     string            `json:"type"`
	Markers  []outbound.Marker `json:"markers,omitempty"`
	Points   []geo.Coordinate  `json:"points,omitempty"`
	Bounds   *outbound.Bounds  `json:"bounds,omitempty"`
	MarkerID string            `json:"markerId,omitempty"`
}

// Frame types
const (
	FrameMarkers     = "markers"
	FrameRoute       = "route"
	FrameFitBounds   = "fitBounds"
	FrameClear       = "clear"
	FrameMarkerClick = "markerClick"
)

// Bridge implements MapSurface and ConnectivityObserver over one websocket
// client. A second client replaces the first; this is a single-user app.
type Bridge struct {
	logger       *zap.Logger
	metrics      *monitoring.MetricsCollector
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	pingInterval time.Duration

	mu          sync.Mutex
	conn        *websocket.Conn
	clickFn     func(markerID string)
	subscribers map[int]func(online bool)
	nextSubID   int

	// Last state, replayed to a newly connected client.
	lastMarkers []outbound.Marker
	lastRoute   []geo.Coordinate
	lastBounds  *outbound.Bounds
}

// NewBridge creates the websocket map bridge.
func NewBridge(writeTimeout, pingInterval time.Duration, metrics *monitoring.MetricsCollector, logger *zap.Logger) *Bridge {
	if writeTimeout == 0 {
		writeTimeout = 10 * time.Second
	}
	if pingInterval == 0 {
		pingInterval = 30 * time.Second
	}
	return &Bridge{
		logger:       logger.Named("mapfeed"),
		metrics:      metrics,
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		subscribers: make(map[int]func(online bool)),
	}
}

// HandleWS upgrades the connection and runs the read loop until the client
// goes away.
func (b *Bridge) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	b.mu.Lock()
	if b.conn != nil {
		b.conn.Close()
	}
	b.conn = conn
	markers, route, bounds := b.lastMarkers, b.lastRoute, b.lastBounds
	b.mu.Unlock()

	b.metrics.MapClientConnected()
	b.notify(true)
	b.logger.Info("Map client connected", zap.String("remote", conn.RemoteAddr().String()))

	// Bring the fresh client up to the current view.
	if len(markers) > 0 {
		b.send(Frame{Type: FrameMarkers, Markers: markers})
	}
	if len(route) > 0 {
		b.send(Frame{Type: FrameRoute, Points: route})
	}
	if bounds != nil {
		b.send(Frame{Type: FrameFitBounds, Bounds: bounds})
	}

	stopPing := make(chan struct{})
	go b.pingLoop(conn, stopPing)

	b.readLoop(conn)
	close(stopPing)

	b.mu.Lock()
	if b.conn == conn {
		b.conn = nil
	}
	stillReplaced := b.conn != nil
	b.mu.Unlock()

	b.metrics.MapClientDisconnected()
	if !stillReplaced {
		b.notify(false)
	}
	b.logger.Info("Map client disconnected")
}

func (b *Bridge) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			b.logger.Debug("Dropping malformed frame", zap.Error(err))
			continue
		}
		if frame.Type == FrameMarkerClick && frame.MarkerID != "" {
			b.mu.Lock()
			fn := b.clickFn
			b.mu.Unlock()
			if fn != nil {
				fn(frame.MarkerID)
			}
		}
	}
}

func (b *Bridge) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(b.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(b.writeTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}

// send writes one frame to the connected client, if any.
func (b *Bridge) send(frame Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	b.conn.SetWriteDeadline(time.Now().Add(b.writeTimeout))
	if err := b.conn.WriteJSON(frame); err != nil {
		b.logger.Warn("Failed to write frame", zap.String("type", frame.Type), zap.Error(err))
		return err
	}
	return nil
}

// SetMarkers replaces the full marker set on the client.
func (b *Bridge) SetMarkers(markers []outbound.Marker) error {
	b.mu.Lock()
	b.lastMarkers = markers
	b.mu.Unlock()
	return b.send(Frame{Type: FrameMarkers, Markers: markers})
}

// DrawRoute replaces the connecting polyline.
func (b *Bridge) DrawRoute(points []geo.Coordinate) error {
	b.mu.Lock()
	b.lastRoute = points
	b.mu.Unlock()
	return b.send(Frame{Type: FrameRoute, Points: points})
}

// FitBounds frames the viewport.
func (b *Bridge) FitBounds(bounds outbound.Bounds) error {
	b.mu.Lock()
	b.lastBounds = &bounds
	b.mu.Unlock()
	return b.send(Frame{Type: FrameFitBounds, Bounds: &bounds})
}

// Clear removes all markers and geometry.
func (b *Bridge) Clear() error {
	b.mu.Lock()
	b.lastMarkers = nil
	b.lastRoute = nil
	b.lastBounds = nil
	b.mu.Unlock()
	return b.send(Frame{Type: FrameClear})
}

// OnMarkerClick registers the marker click callback.
func (b *Bridge) OnMarkerClick(fn func(markerID string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clickFn = fn
}

// Online reports whether a map client is currently connected.
func (b *Bridge) Online() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

// Subscribe registers a connectivity listener and returns its remover.
func (b *Bridge) Subscribe(fn func(online bool)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextSubID
	b.nextSubID++
	b.subscribers[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subscribers, id)
	}
}

func (b *Bridge) notify(online bool) {
	b.mu.Lock()
	fns := make([]func(bool), 0, len(b.subscribers))
	for _, fn := range b.subscribers {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(online)
	}
}
