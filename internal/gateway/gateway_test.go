package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/gyrocall/internal/cue"
	"github.com/verte-zerg/gyrocall/internal/model"
	"github.com/verte-zerg/gyrocall/internal/sensor"
)

func newTestGateway(t *testing.T) (*Gateway, *sensor.Sampler, *httptest.Server) {
	t.Helper()
	g := New(DefaultConfig(), zerolog.Nop())
	sampler := sensor.NewSampler()
	g.attach(sampler)
	srv := httptest.NewServer(g.Handler())
	t.Cleanup(srv.Close)
	return g, sampler, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func readOutbound(t *testing.T, ws *websocket.Conn) outbound {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg outbound
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestOrientationMessagesReachSampler(t *testing.T) {
	_, sampler, srv := newTestGateway(t)
	ws := dial(t, srv)

	if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"orientation","alpha":null,"beta":4}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"orientation","alpha":370,"beta":4}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitFor(t, "sample", func() bool {
		_, ok := sampler.Latest()
		return ok
	})
	got, _ := sampler.Latest()
	if got.Alpha != 10 || got.Beta != 4 || got.Gamma != 0 {
		t.Fatalf("unexpected sample %+v", got)
	}
	accepted, dropped := sampler.Updates()
	if accepted != 1 || dropped != 1 {
		t.Fatalf("expected 1 accepted and 1 dropped, got %d/%d", accepted, dropped)
	}
}

func TestPermissionWaitsForPhoneReport(t *testing.T) {
	g, _, srv := newTestGateway(t)
	ws := dial(t, srv)
	waitFor(t, "connection", g.Connected)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result := make(chan model.Permission, 1)
	go func() {
		p, _ := g.Permission(ctx)
		result <- p
	}()

	if msg := readOutbound(t, ws); msg.Type != msgRequestPermission {
		t.Fatalf("expected permission request, got %+v", msg)
	}
	if err := ws.WriteJSON(inbound{Type: msgPermission, State: "denied"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if p := <-result; p != model.PermissionDenied {
		t.Fatalf("expected denied, got %v", p)
	}

	go func() {
		p, _ := g.Permission(ctx)
		result <- p
	}()
	if msg := readOutbound(t, ws); msg.Type != msgRequestPermission {
		t.Fatalf("expected a second prompt on retry, got %+v", msg)
	}
	if err := ws.WriteJSON(inbound{Type: msgPermission, State: "granted"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if p := <-result; p != model.PermissionGranted {
		t.Fatalf("expected granted, got %v", p)
	}
	if p, err := g.Permission(ctx); err != nil || p != model.PermissionGranted {
		t.Fatalf("expected cached granted, got %v (%v)", p, err)
	}
}

func TestPermissionHonoursContext(t *testing.T) {
	g := New(DefaultConfig(), zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := g.Permission(ctx); err == nil {
		t.Fatalf("expected context error without a phone")
	}
}

func TestRemoteForwardsCues(t *testing.T) {
	g, _, srv := newTestGateway(t)
	ws := dial(t, srv)
	waitFor(t, "connection", g.Connected)

	var out cue.Output = g.Remote("zh-CN")
	if err := out.Say("向左"); err != nil {
		t.Fatalf("say: %v", err)
	}
	if err := out.Play(cue.ToneCorrect); err != nil {
		t.Fatalf("play: %v", err)
	}
	say := readOutbound(t, ws)
	if say.Type != msgSay || say.Text != "向左" || say.Lang != "zh-CN" {
		t.Fatalf("unexpected say message %+v", say)
	}
	tone := readOutbound(t, ws)
	if tone.Type != msgTone || tone.Kind != "correct" {
		t.Fatalf("unexpected tone message %+v", tone)
	}
}

func TestNewerConnectionReplacesOlder(t *testing.T) {
	g, _, srv := newTestGateway(t)
	first := dial(t, srv)
	waitFor(t, "first connection", g.Connected)
	_ = dial(t, srv)

	_ = first.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		if _, _, err := first.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Fatalf("expected normal close on the old connection, got %v", err)
			}
			break
		}
	}
	if !g.Connected() {
		t.Fatalf("expected the newer phone to stay connected")
	}
}

func TestIndexAndHealth(t *testing.T) {
	_, _, srv := newTestGateway(t)
	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("get index: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "deviceorientation") {
		t.Fatalf("unexpected index response %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	var health map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health["connected"] != false || health["permission"] != "pending" {
		t.Fatalf("unexpected health %v", health)
	}

	resp, err = http.Get(srv.URL + "/missing")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestRunServesAndStops(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	g := New(cfg, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Run(ctx, sensor.NewSampler()) }()

	addrCtx, addrCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer addrCancel()
	addr, err := g.Addr(addrCtx)
	if err != nil {
		t.Fatalf("addr: %v", err)
	}
	resp, err := http.Get("http://" + addr.String() + "/healthz")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	_ = resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("gateway did not stop")
	}
}
