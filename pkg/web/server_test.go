package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/OpenMixerProject/AES50/pkg/config"
	"github.com/OpenMixerProject/AES50/pkg/engine"
	"github.com/OpenMixerProject/AES50/pkg/logger"
)

type fixedStats engine.Stats

func (f fixedStats) Stats() engine.Stats { return engine.Stats(f) }

func testServer(t *testing.T, tx, rx StatsSource) *Server {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{
		Audio: config.AudioConfig{SampleRate: 48000},
		Web:   config.WebConfig{Enabled: true, Host: "127.0.0.1", Port: 0},
	}
	return NewServer(cfg, log, tx, rx, nil)
}

func TestStatusEndpoint(t *testing.T) {
	tx := fixedStats{BlocksEncoded: 42, FramesSent: 42}
	rx := fixedStats{BlocksDecoded: 41, FramesReceived: 41, Faults: 1}
	s := testServer(t, tx, rx)

	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest("GET", "/api/status", nil))

	if rec.Code != 200 {
		t.Fatalf("status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type %q", ct)
	}

	var got Status
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.SampleRate != 48000 {
		t.Errorf("sample_rate = %d", got.SampleRate)
	}
	if got.Transmitter == nil || got.Transmitter.BlocksEncoded != 42 {
		t.Errorf("transmitter stats = %+v", got.Transmitter)
	}
	if got.Receiver == nil || got.Receiver.Faults != 1 {
		t.Errorf("receiver stats = %+v", got.Receiver)
	}
	if got.Transport != nil {
		t.Error("transport stats present with no link wired")
	}
}

// An upgrade that lands after the hub has exited must be closed rather
// than parking the handler on the register channel forever.
func TestWebSocketUpgradeAfterHubShutdown(t *testing.T) {
	s := testServer(t, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go s.websocketHub.run(ctx)
	cancel()
	select {
	case <-s.websocketHub.done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not exit")
	}

	srv := httptest.NewServer(http.HandlerFunc(s.handleWebSocket))
	// Close waits for in-flight handlers, so a handler stuck on the
	// register send would hang the test here.
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("upgrade failed: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("connection stayed open after hub shutdown")
	}
}

func TestStatusOmitsMissingPipelines(t *testing.T) {
	s := testServer(t, fixedStats{}, nil)

	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest("GET", "/api/status", nil))

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	if _, ok := raw["transmitter"]; !ok {
		t.Error("transmitter section missing")
	}
	if _, ok := raw["receiver"]; ok {
		t.Error("receiver section present for a transmit-only endpoint")
	}
}
