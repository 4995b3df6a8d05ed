package main

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"bizdesk/internal/api"
	"bizdesk/internal/config"
	"bizdesk/internal/service/workspace"
	"bizdesk/internal/storage"
	"bizdesk/internal/worker"
)

func TestServerShutdownEndsEventStreams(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := storage.Open("sqlite3", config.Default())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := workspace.NewService(db, "serve-test-secret")
	if err != nil {
		t.Fatalf("workspace: %v", err)
	}
	manager := worker.NewManager(svc, worker.DispatcherConfig{MinWorkers: 1, MaxWorkers: 1, QueueSize: 4}, worker.Options{})
	t.Cleanup(manager.Shutdown)

	router := gin.New()
	api.NewHandler(svc, manager, nil).RegisterRoutes(router)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := newHTTPServer(ln.Addr().String(), router, manager)
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()

	viewID := manager.OpenView()
	resp, err := http.Get("http://" + ln.Addr().String() + "/api/views/" + viewID + "/events")
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		if strings.TrimSpace(line) == "event: ready" {
			break
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	start := time.Now()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown with an open stream: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("shutdown took %s", elapsed)
	}
	if err := <-served; !errors.Is(err, http.ErrServerClosed) {
		t.Fatalf("serve returned %v", err)
	}
	if n := manager.Views(); n != 0 {
		t.Fatalf("expected views closed on shutdown, %d open", n)
	}
}
