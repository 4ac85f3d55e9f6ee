package gateway

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/verte-zerg/gyrocall/internal/model"
	"github.com/verte-zerg/gyrocall/internal/sensor"
)

// Message types on the wire.
const (
	msgHello             = "hello"
	msgOrientation       = "orientation"
	msgPermission        = "permission"
	msgSay               = "say"
	msgTone              = "tone"
	msgRequestPermission = "request_permission"
)

// inbound is a message from the phone.
type inbound struct {
	Type  string   `json:"type"`
	Alpha *float64 `json:"alpha"`
	Beta  *float64 `json:"beta"`
	Gamma *float64 `json:"gamma"`
	State string   `json:"state,omitempty"`
	Agent string   `json:"agent,omitempty"`
}

// outbound is a message to the phone.
type outbound struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Lang string `json:"lang,omitempty"`
	Kind string `json:"kind,omitempty"`
}

type connection struct {
	id          string
	ws          *websocket.Conn
	send        chan []byte
	gw          *Gateway
	connectedAt time.Time
	closeOnce   sync.Once
}

func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn().Err(err).Msg("failed to upgrade websocket connection")
		return
	}
	c := &connection{
		id:          uuid.NewString(),
		ws:          ws,
		send:        make(chan []byte, 64),
		gw:          g,
		connectedAt: time.Now(),
	}
	g.register(c)
	go c.writePump()
	go c.readPump()
}

// register makes c the active phone and closes any previous one.
func (g *Gateway) register(c *connection) {
	g.mu.Lock()
	prev := g.conn
	g.conn = c
	g.mu.Unlock()
	if prev != nil {
		g.log.Info().Str("connection_id", prev.id).Msg("phone replaced by a newer connection")
		prev.closeSend()
	}
	g.log.Info().Str("connection_id", c.id).Str("remote", c.ws.RemoteAddr().String()).Msg("phone connected")
}

func (g *Gateway) unregister(c *connection) {
	g.mu.Lock()
	if g.conn == c {
		g.conn = nil
	}
	g.mu.Unlock()
	c.closeSend()
}

func (g *Gateway) dropConnection() {
	g.mu.Lock()
	c := g.conn
	g.conn = nil
	g.mu.Unlock()
	if c != nil {
		c.closeSend()
	}
}

func (c *connection) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

func (c *connection) sendMessage(msg outbound) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.gw.log.Error().Err(err).Msg("encode outbound message")
		return
	}
	defer func() {
		// send may be closed by a concurrent replacement.
		if recover() != nil {
			c.gw.log.Debug().Str("connection_id", c.id).Msg("dropped message for closed connection")
		}
	}()
	select {
	case c.send <- data:
	default:
		c.gw.log.Warn().Str("connection_id", c.id).Str("type", msg.Type).Msg("send buffer full, dropping message")
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(c.gw.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.gw.cfg.WriteTimeout))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.gw.log.Debug().Err(err).Str("connection_id", c.id).Msg("failed to write message")
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.gw.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.gw.log.Debug().Err(err).Str("connection_id", c.id).Msg("failed to send ping")
				return
			}
		}
	}
}

func (c *connection) readPump() {
	defer func() {
		c.gw.unregister(c)
		_ = c.ws.Close()
		c.gw.log.Info().Str("connection_id", c.id).Dur("connected_for", time.Since(c.connectedAt)).Msg("phone disconnected")
	}()
	c.ws.SetReadLimit(c.gw.cfg.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.gw.cfg.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.gw.cfg.ReadTimeout))
	})
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.gw.log.Warn().Err(err).Str("connection_id", c.id).Msg("unexpected websocket close")
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.gw.cfg.ReadTimeout))
		c.handleMessage(data)
	}
}

func (c *connection) handleMessage(data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		c.gw.log.Debug().Err(err).Str("connection_id", c.id).Msg("malformed phone message")
		return
	}
	switch msg.Type {
	case msgOrientation:
		c.gw.push(sensor.Reading{Alpha: msg.Alpha, Beta: msg.Beta, Gamma: msg.Gamma})
	case msgPermission:
		p, err := model.ParsePermission(msg.State)
		if err != nil {
			c.gw.log.Debug().Err(err).Msg("bad permission report")
			return
		}
		c.gw.log.Info().Str("connection_id", c.id).Stringer("permission", p).Msg("phone reported sensor permission")
		c.gw.setPermission(p)
	case msgHello:
		c.gw.log.Info().Str("connection_id", c.id).Str("agent", msg.Agent).Msg("phone hello")
	default:
		c.gw.log.Debug().Str("connection_id", c.id).Str("type", msg.Type).Msg("ignored phone message")
	}
}
