package binance

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/fd1az/triarb-bot/internal/logger"
)

func testLogger() *logger.Logger {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

func mockStreamServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		ctx := context.Background()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}))
}

func TestClient_ConnectionStateNotifications(t *testing.T) {
	server := mockStreamServer(t)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	cfg := DefaultClientConfig([]string{"BTCUSDT"})
	cfg.BaseURL = wsURL

	client, err := NewClient(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	var mu sync.Mutex
	var states []bool
	client.OnConnectionState(func(connected bool) {
		mu.Lock()
		states = append(states, connected)
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	mu.Lock()
	sawConnected := false
	for _, s := range states {
		if s {
			sawConnected = true
		}
	}
	mu.Unlock()
	if !sawConnected {
		t.Error("no connected notification after Connect")
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		disconnected := len(states) > 0 && !states[len(states)-1]
		mu.Unlock()
		if disconnected {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no disconnect notification after Close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestProvider_ConnectionStateForwarding(t *testing.T) {
	provider, err := NewProvider(DefaultProviderConfig(), testLogger())
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}

	var got []bool
	provider.OnConnectionState(func(connected bool) {
		got = append(got, connected)
	})

	provider.notifyConnState(true)
	provider.notifyConnState(false)

	if len(got) != 2 || !got[0] || got[1] {
		t.Errorf("notifications = %v, want [true false]", got)
	}

	if provider.Connected() {
		t.Error("Connected() should be false before any subscription")
	}
}
