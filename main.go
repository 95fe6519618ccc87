package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/freekieb7/corehttp/filesystem"
	"github.com/freekieb7/corehttp/http"
	"github.com/freekieb7/corehttp/telemetry"
)

const serviceName = "corehttp"

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatalln(err)
	}
}

func run(ctx context.Context) error {
	addr := flag.String("addr", "127.0.0.1:4221", "address to listen on")
	directory := flag.String("directory", os.TempDir(), "directory served under /files/")
	workers := flag.Int("workers", http.DefaultWorkerCount, "number of worker goroutines")
	export := flag.Bool("otel", false, "export traces, metrics and logs over OTLP")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *export {
		shutdownTelemetry, err := telemetry.Setup(ctx, serviceName)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdownTelemetry(context.Background()); err != nil {
				log.Println(err)
			}
		}()
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := telemetry.NewLogger(serviceName, *export, level)

	files := filesystem.NewLocalFileSystem(*directory)
	if err := files.CreateDirectory("."); err != nil {
		return err
	}

	server, err := routes(http.New(*addr), files).
		Workers(*workers).
		Logger(logger).
		Build()
	if err != nil {
		return err
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Run()
	}()

	select {
	case err := <-serverErrCh:
		return err
	case <-ctx.Done():
		stop()
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-serverErrCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
