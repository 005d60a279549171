package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forestmmo/server"
)

// Entry point: starts the HTTP + WebSocket session server for the forest
// scene. All tunables come from FOREST_* environment variables; -addr
// overrides the listen address for quick local runs.
func main() {
	cfg, err := server.LoadConfig()
	if err != nil {
		panic(err)
	}

	var addr string
	flag.StringVar(&addr, "addr", cfg.Addr, "server listen address, e.g. :3000")
	flag.Parse()
	cfg.Addr = addr

	if err := server.InitLogger(cfg.LogFile, cfg.LogLevel); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	table := server.NewRoomTable()
	gw := server.NewGateway(cfg, table)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.HandleWS)
	mux.HandleFunc("/metrics", gw.HandleMetrics)
	mux.HandleFunc("/admin/rooms", gw.HandleRooms)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		server.Log.Infof("forest session server listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	server.Log.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
