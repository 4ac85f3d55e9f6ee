// Package gateway serves the phone page and carries orientation readings
// and cues over a websocket.
package gateway

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/gyrocall/internal/model"
	"github.com/verte-zerg/gyrocall/internal/sensor"
)

//go:embed web/index.html
var indexHTML []byte

// Config holds the HTTP and websocket settings.
type Config struct {
	Addr           string
	CertFile       string
	KeyFile        string
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
}

// DefaultConfig returns the stock settings.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8090",
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 1024,
	}
}

// Gateway is a sensor.Source and sensor.Capability backed by one phone. The
// most recent connection wins.
type Gateway struct {
	cfg      Config
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mu          sync.Mutex
	sink        sensor.Sink
	conn        *connection
	perm        model.Permission
	permChanged chan struct{}
	addr        net.Addr
	ready       chan struct{}
}

// New returns a Gateway. Call Run to start serving.
func New(cfg Config, log zerolog.Logger) *Gateway {
	def := DefaultConfig()
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	return &Gateway{
		cfg: cfg,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The page is served by this process; phones on the LAN reach
			// it by IP, so origins cannot be pinned.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		permChanged: make(chan struct{}),
		ready:       make(chan struct{}),
	}
}

// Handler returns the HTTP routes wrapped in CORS.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", g.handleIndex)
	mux.HandleFunc("/ws", g.handleWebSocket)
	mux.HandleFunc("/healthz", g.handleHealth)
	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodHead},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(mux)
}

// Run serves until ctx is cancelled, pushing readings into sink.
func (g *Gateway) Run(ctx context.Context, sink sensor.Sink) error {
	g.attach(sink)
	ln, err := net.Listen("tcp", g.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", g.cfg.Addr, err)
	}
	g.mu.Lock()
	g.addr = ln.Addr()
	close(g.ready)
	g.mu.Unlock()

	srv := &http.Server{Handler: g.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if g.cfg.CertFile != "" {
			errCh <- srv.ServeTLS(ln, g.cfg.CertFile, g.cfg.KeyFile)
			return
		}
		errCh <- srv.Serve(ln)
	}()
	g.log.Info().Str("addr", ln.Addr().String()).Bool("tls", g.cfg.CertFile != "").Msg("phone gateway listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			g.log.Warn().Err(err).Msg("gateway shutdown")
		}
		g.dropConnection()
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	}
}

// Addr blocks until Run is listening and returns the bound address.
func (g *Gateway) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-g.ready:
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addr, nil
}

// Connected reports whether a phone is attached.
func (g *Gateway) Connected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.conn != nil
}

// Permission implements sensor.Capability. A usable state returns at once;
// otherwise the phone is asked to prompt and the call waits for its next
// report.
func (g *Gateway) Permission(ctx context.Context) (model.Permission, error) {
	g.mu.Lock()
	if g.perm.Usable() {
		p := g.perm
		g.mu.Unlock()
		return p, nil
	}
	g.perm = model.PermissionPending
	wait := g.permChanged
	conn := g.conn
	g.mu.Unlock()

	if conn != nil {
		conn.sendMessage(outbound{Type: msgRequestPermission})
	}
	for {
		select {
		case <-ctx.Done():
			return model.PermissionPending, ctx.Err()
		case <-wait:
		}
		g.mu.Lock()
		p := g.perm
		wait = g.permChanged
		g.mu.Unlock()
		if p != model.PermissionPending {
			return p, nil
		}
	}
}

func (g *Gateway) attach(sink sensor.Sink) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sink = sink
}

func (g *Gateway) setPermission(p model.Permission) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.perm = p
	close(g.permChanged)
	g.permChanged = make(chan struct{})
}

func (g *Gateway) push(r sensor.Reading) bool {
	g.mu.Lock()
	sink := g.sink
	g.mu.Unlock()
	if sink == nil {
		return false
	}
	return sink.Push(r)
}

func (g *Gateway) send(msg outbound) {
	g.mu.Lock()
	conn := g.conn
	g.mu.Unlock()
	if conn == nil {
		return
	}
	conn.sendMessage(msg)
}

func (g *Gateway) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(indexHTML); err != nil {
		g.log.Debug().Err(err).Msg("write index")
	}
}

func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	g.mu.Lock()
	body := map[string]any{"connected": g.conn != nil, "permission": g.perm.String()}
	g.mu.Unlock()
	if err := json.NewEncoder(w).Encode(body); err != nil {
		g.log.Debug().Err(err).Msg("write health")
	}
}
