package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"

	"parley/pkg/state"
	"parley/pkg/state/logger"
	"parley/pkg/state/sensor"
	storedb "parley/pkg/store/db/storedb"
)

// Components are the long-lived pieces torn down on exit. Nil fields are skipped.
type Components struct {
	HTTP        *fasthttp.Server
	Checkpoints context.CancelFunc
	Limiters    func()
	Sensor      *sensor.Sensor
	Store       *storedb.Store
}

// ShutdownApp stops accepting requests, stops background jobs and closes the store.
func ShutdownApp(ctx context.Context, c Components) error {
	logger.Info("shutdown_requested")

	// stop accepting new requests; in-flight ones finish unless ctx expires first
	if c.HTTP != nil {
		logger.Info("shutdown_http")
		done := make(chan error, 1)
		go func() { done <- c.HTTP.Shutdown() }()
		select {
		case err := <-done:
			if err != nil {
				logger.Error("shutdown_http_error", "error", err)
			}
		case <-ctx.Done():
			logger.Warn("shutdown_http_timeout", "error", ctx.Err())
		}
	}

	if c.Checkpoints != nil {
		logger.Info("shutdown_checkpoint_scheduler")
		c.Checkpoints()
	}
	if c.Limiters != nil {
		c.Limiters()
	}
	if c.Sensor != nil {
		logger.Info("shutdown_sensor")
		c.Sensor.Stop()
	}

	var firstErr error
	if c.Store.Ready() {
		logger.Info("shutdown_store_flush")
		if err := c.Store.Flush(); err != nil {
			logger.Error("shutdown_store_flush_error", "error", err)
			firstErr = err
		}
		logger.Info("shutdown_store_close")
		if err := c.Store.Close(); err != nil {
			logger.Error("shutdown_store_close_error", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	logger.Info("shutdown_complete")
	return firstErr
}

// SetupSignalHandler installs handlers for SIGINT/SIGTERM and SIGPIPE and
// returns a cancellable context. The returned context is cancelled when any
// of the watched signals arrives. Use the cancel function to stop watching
// and to release resources.
func SetupSignalHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	// dump goroutine stacks on SIGPIPE to aid diagnostics
	sigpipe := make(chan os.Signal, 1)
	signal.Notify(sigpipe, syscall.SIGPIPE)

	go func() {
		defer signal.Stop(sigc)
		defer signal.Stop(sigpipe)
		select {
		case s := <-sigc:
			logger.Info("signal_received", "signal", s.String(), "msg", "shutdown requested")
		case s := <-sigpipe:
			buf := make([]byte, 1<<20)
			n := runtime.Stack(buf, true)
			logger.Info("signal_received", "signal", s.String(), "msg", "SIGPIPE - dumping goroutine stacks")
			logger.Info("goroutine_stack_dump", "dump", string(buf[:n]))
		case <-ctx.Done():
			return
		}
		cancel()
	}()

	return ctx, cancel
}

// Abort reports a fatal startup error and exits. When dbPath has a state
// layout the message is also left in its logs folder for later inspection.
func Abort(msg string, err error, dbPath string) {
	line := fmt.Sprintf("%s: %v", msg, err)
	fmt.Fprintln(os.Stderr, line)
	logger.Error("fatal", "msg", msg, "error", err)
	logger.Sync()

	if dbPath != "" {
		logs := state.LogsPath(dbPath)
		if fi, statErr := os.Stat(logs); statErr == nil && fi.IsDir() {
			name := filepath.Join(logs, "abort.log")
			entry := time.Now().UTC().Format(time.RFC3339) + " " + line + "\n"
			if f, openErr := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600); openErr == nil {
				_, _ = f.WriteString(entry)
				_ = f.Close()
			}
		}
	}
	os.Exit(1)
}
