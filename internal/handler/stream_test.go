package handler

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sentiment-alpha/internal/domain"

	"github.com/gorilla/websocket"
)

func TestStreamEventsSSE(t *testing.T) {
	env := newTestEnv(nil)
	env.bus.Publish(domain.EventSignal, "first", map[string]any{"action": "hold"})

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("unexpected content type %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	readBlock := func() string {
		var lines []string
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read failed: %v", err)
			}
			line = strings.TrimRight(line, "\n")
			if line == "" {
				return strings.Join(lines, "\n")
			}
			lines = append(lines, line)
		}
	}

	state := readBlock()
	if !strings.HasPrefix(state, "event:state\ndata:") || !strings.Contains(state, `"summary":"state snapshot"`) {
		t.Fatalf("unexpected first block %q", state)
	}
	if !strings.Contains(state, `"asset":"ETH-USD"`) {
		t.Fatalf("expected state payload, got %q", state)
	}

	replayed := readBlock()
	if !strings.HasPrefix(replayed, "id:1\nevent:signal\ndata:") || !strings.Contains(replayed, `"summary":"first"`) {
		t.Fatalf("unexpected replayed block %q", replayed)
	}

	env.bus.Publish(domain.EventSignal, "second", nil)
	for {
		block := readBlock()
		if block == ": keep-alive" {
			continue
		}
		if !strings.HasPrefix(block, "id:2\nevent:signal") {
			t.Fatalf("unexpected live block %q", block)
		}
		break
	}
}

func TestStreamWebSocket(t *testing.T) {
	env := newTestEnv(nil)
	env.bus.Publish(domain.EventState, "backend ready", nil)

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var msg streamMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read state: %v", err)
	}
	if msg.Type != domain.EventState || msg.Summary != stateSummary {
		t.Fatalf("unexpected first message %+v", msg)
	}

	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read replay: %v", err)
	}
	if msg.ID != 1 || msg.Summary != "backend ready" {
		t.Fatalf("unexpected replayed message %+v", msg)
	}

	env.bus.Publish(domain.EventSignal, "live", nil)
	msg = streamMessage{}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read live: %v", err)
	}
	if msg.ID != 2 || msg.Type != domain.EventSignal {
		t.Fatalf("unexpected live message %+v", msg)
	}
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	env := newTestEnv(nil)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	header := http.Header{"Origin": []string{"http://evil.example"}}
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Fatal("expected handshake to fail for foreign origin")
	}
}

func TestWriteSSEFraming(t *testing.T) {
	var sb strings.Builder
	if err := writeSSE(&sb, 0, domain.EventState, streamMessage{Type: domain.EventState, Summary: "ready"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := writeSSE(&sb, 12, domain.EventSignal, streamMessage{ID: 12, Type: domain.EventSignal, Summary: "go"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	blocks := strings.Split(strings.TrimSuffix(sb.String(), "\n\n"), "\n\n")
	if len(blocks) != 2 {
		t.Fatalf("expected two frames, got %q", sb.String())
	}
	if strings.Contains(blocks[0], "id:") || !strings.HasPrefix(blocks[0], "event:state\ndata:{") {
		t.Fatalf("unexpected state frame %q", blocks[0])
	}
	if !strings.HasPrefix(blocks[1], "id:12\nevent:signal\ndata:{") || !strings.Contains(blocks[1], `"summary":"go"`) {
		t.Fatalf("unexpected signal frame %q", blocks[1])
	}
}
