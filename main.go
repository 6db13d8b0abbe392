package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mazerun/config"
	"mazerun/logging"
	"mazerun/recorder"
	"mazerun/server"
)

// MazeRun 入口：启动 HTTP + WebSocket 服务，并初始化房间管理器
func main() {
	var addr, envFile string
	flag.StringVar(&addr, "addr", "", "server listen address, e.g. :8080 (overrides MAZERUN_ADDR)")
	flag.StringVar(&envFile, "env", ".env", "dotenv file to load before reading the environment")
	flag.Parse()

	cfg, err := config.Load(envFile)
	if err != nil {
		panic(err)
	}
	if addr != "" {
		cfg.Addr = addr
	}

	log := logging.New(logging.Options{File: cfg.LogFile, Console: cfg.LogConsole, Debug: cfg.Debug})
	defer logging.Sync(log)

	// 移动参数只在客户端生效，服务端不做移动模拟
	w, _, err := config.LoadWorld(cfg.WorldFile)
	if err != nil {
		log.Fatalw("load world", "file", cfg.WorldFile, "err", err)
	}
	log.Infow("world loaded", "width", w.Width(), "height", w.Height(), "walls", len(w.Walls()))

	rec, err := recorder.Open(cfg.RecordDir, cfg.SessionDB, log)
	if err != nil {
		log.Fatalw("open recorder", "err", err)
	}
	var opts []server.RoomOption
	if rec != nil {
		defer rec.Close()
		opts = append(opts, server.WithRecorder(rec))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rm := server.NewManager(ctx, w, log, opts...)
	// 先预创建一个默认房间，便于快速试跑
	_ = rm.GetOrCreateRoom(cfg.DefaultRoom)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.NewServer(rm, log, cfg.Origins).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infof("MazeRun listening on %s; map at http://localhost%v/map", cfg.Addr, cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	<-ctx.Done()
	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnw("http shutdown", "err", err)
	}
	rm.Wait()
}
