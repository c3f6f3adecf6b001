// Package liveupdate maintains the persistent push channel to the
// dashboard backend. One physical websocket connection carries every
// destination-scoped subscription; the connection reconnects
// automatically after transport loss.
package liveupdate

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dashwall/dashwall/internal/logger"
	"github.com/dashwall/dashwall/internal/models"
)

const (
	writeWait = 10 * time.Second
	// subscriptionBuffer bounds per-subscription queueing; delivery is
	// best-effort and slow consumers lose events rather than block the
	// read loop
	subscriptionBuffer = 16
)

// Config holds the transport parameters. Heartbeat and reconnect timing
// are configuration, not constants of the channel logic.
type Config struct {
	// URL is the websocket endpoint, e.g. ws://backend/ws
	URL string
	// HeartbeatInterval is the ping cadence in both directions
	HeartbeatInterval time.Duration
	// ReconnectDelay is the fixed wait between reconnect attempts
	ReconnectDelay time.Duration
}

// frame is the client-to-server control message
type frame struct {
	Action      string `json:"action"`
	Destination string `json:"destination"`
}

// push is the server-to-client envelope
type push struct {
	Destination string             `json:"destination"`
	Body        models.UpdateEvent `json:"body"`
}

// Subscription is one lazy stream of update events for a destination.
// Multiple Watch calls on the same destination are independent; callers
// that need at-most-one active subscription unsubscribe before
// re-subscribing.
type Subscription struct {
	destination string
	events      chan models.UpdateEvent
	channel     *Channel
	once        sync.Once
}

// Destination returns the subscribed path
func (s *Subscription) Destination() string {
	return s.destination
}

// Events returns the stream of update events. The channel is closed on
// Unsubscribe and on Channel.Disconnect.
func (s *Subscription) Events() <-chan models.UpdateEvent {
	return s.events
}

// Unsubscribe tears this subscription down. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.channel.remove(s)
	})
}

// Channel is the process-wide live update connection
type Channel struct {
	cfg Config
	log logger.Logger

	dialer *websocket.Dialer

	mu      sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	subs    map[*Subscription]bool
	running bool
	stop    chan struct{}
}

// New creates a Channel; no connection is attempted until StartConnection
func New(cfg Config, log logger.Logger) *Channel {
	return &Channel{
		cfg:    cfg,
		log:    log,
		dialer: websocket.DefaultDialer,
		subs:   make(map[*Subscription]bool),
	}
}

// StartConnection idempotently begins connecting in the background. It
// does not block; subscribers simply receive nothing until the
// connection is up.
func (c *Channel) StartConnection() {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.stop = make(chan struct{})
	stop := c.stop
	c.mu.Unlock()

	go c.run(stop)
}

// Connected reports whether the transport is currently established
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Watch returns a new subscription for a destination. The subscription
// is announced to the server immediately when connected, and re-announced
// after every reconnect.
func (c *Channel) Watch(destination string) *Subscription {
	sub := &Subscription{
		destination: destination,
		events:      make(chan models.UpdateEvent, subscriptionBuffer),
		channel:     c,
	}

	c.mu.Lock()
	c.subs[sub] = true
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		c.writeFrame(conn, frame{Action: "subscribe", Destination: destination})
	}
	return sub
}

// Disconnect gracefully tears the connection down and closes every
// subscription. Safe to call when never connected. StartConnection may
// be called again afterwards.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stop)
	conn := c.conn
	c.conn = nil
	subs := make([]*Subscription, 0, len(c.subs))
	for sub := range c.subs {
		subs = append(subs, sub)
	}
	c.subs = make(map[*Subscription]bool)
	for _, sub := range subs {
		close(sub.events)
	}
	c.mu.Unlock()

	if conn != nil {
		c.writeMu.Lock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		conn.Close()
	}
	c.log.Info("Live update channel disconnected")
}

// remove is called by Subscription.Unsubscribe
func (c *Channel) remove(sub *Subscription) {
	c.mu.Lock()
	if !c.subs[sub] {
		c.mu.Unlock()
		return
	}
	delete(c.subs, sub)
	conn := c.conn
	close(sub.events)
	c.mu.Unlock()

	if conn != nil {
		c.writeFrame(conn, frame{Action: "unsubscribe", Destination: sub.destination})
	}
}

// run owns the connect/reconnect cycle until stop closes
func (c *Channel) run(stop chan struct{}) {
	for {
		conn, _, err := c.dialer.Dial(c.cfg.URL, nil)
		if err != nil {
			c.log.Warn("Live update connection failed", "url", c.cfg.URL, "error", err)
			select {
			case <-stop:
				return
			case <-time.After(c.cfg.ReconnectDelay):
				continue
			}
		}

		c.mu.Lock()
		c.conn = conn
		subs := make([]*Subscription, 0, len(c.subs))
		for sub := range c.subs {
			subs = append(subs, sub)
		}
		c.mu.Unlock()

		c.log.Info("Live update channel connected", "url", c.cfg.URL, "subscriptions", len(subs))
		for _, sub := range subs {
			c.writeFrame(conn, frame{Action: "subscribe", Destination: sub.destination})
		}

		done := make(chan struct{})
		go c.heartbeat(conn, stop, done)
		c.readLoop(conn, stop)
		close(done)

		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		conn.Close()

		select {
		case <-stop:
			return
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

// heartbeat pings the server on the configured interval
func (c *Channel) heartbeat(conn *websocket.Conn, stop, done chan struct{}) {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// readLoop reads pushes until the connection drops or stop closes
func (c *Channel) readLoop(conn *websocket.Conn, stop chan struct{}) {
	conn.SetReadDeadline(time.Now().Add(2 * c.cfg.HeartbeatInterval))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(2 * c.cfg.HeartbeatInterval))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-stop:
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					c.log.Warn("Live update connection lost", "error", err)
				}
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(2 * c.cfg.HeartbeatInterval))

		var p push
		if err := json.Unmarshal(message, &p); err != nil {
			// Fatal to this message only; never to the subscription
			c.log.Debug("Dropping malformed update event", "error", err)
			continue
		}
		c.dispatch(p)
	}
}

// dispatch fans a push out to every matching subscription, best-effort
func (c *Channel) dispatch(p push) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for sub := range c.subs {
		if sub.destination != p.Destination {
			continue
		}
		select {
		case sub.events <- p.Body:
		default:
			c.log.Warn("Subscriber lagging, dropping event",
				"destination", p.Destination, "type", p.Body.Type)
		}
	}
}

// writeFrame sends one control frame, logging failures
func (c *Channel) writeFrame(conn *websocket.Conn, f frame) {
	data, err := json.Marshal(f)
	if err != nil {
		c.log.Error("Failed to encode frame", "error", err)
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.log.Debug("Failed to write frame", "action", f.Action, "error", err)
	}
}
