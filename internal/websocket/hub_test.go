package websocket_test

import (
	"sync"
	"testing"
	"time"

	"github.com/dom/mafia-server/internal/config"
	"github.com/dom/mafia-server/internal/game"
	"github.com/dom/mafia-server/internal/websocket"
	"go.uber.org/zap"
)

func TestHub_ConcurrentStop(t *testing.T) {
	registry := game.NewRegistry(game.Options{}, game.NopArchiver{}, zap.NewNop())
	t.Cleanup(registry.Shutdown)
	hub := websocket.NewHub(registry, config.WebSocketConfig{}, zap.NewNop())
	go hub.Run()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Stop()
		}()
	}

	stopped := make(chan struct{})
	go func() {
		wg.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(wait):
		t.Fatal("Stop did not return")
	}

	hub.Stop()
}
