package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"vendas/internal/log"
)

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := SetupLogger(&buf, "warn", log.ComponentApp)
	logger.Info("hidden")
	slog.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "visible") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestInitSQLite(t *testing.T) {
	logger := log.NewText(io.Discard, slog.LevelError, log.ComponentApp)
	repo := InitSQLite(logger, filepath.Join(t.TempDir(), "vendas.db"))
	if err := repo.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestShutdownRunsCleanup(t *testing.T) {
	logger := log.NewText(io.Discard, slog.LevelError, log.ComponentApp)
	cleaned := make(chan struct{})
	ctx, done := shutdownOn(logger, time.Second, func(context.Context) { close(cleaned) }, syscall.SIGUSR1)

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not finish")
	}
	WaitForShutdown(ctx, done)
	select {
	case <-cleaned:
	default:
		t.Fatal("cleanup not called")
	}
}

func TestShutdownTimeout(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewText(&buf, slog.LevelInfo, log.ComponentApp)
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	_, done := shutdownOn(logger, 20*time.Millisecond, func(context.Context) { <-block }, syscall.SIGUSR2)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR2); err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not give up after timeout")
	}
	if !strings.Contains(buf.String(), "Shutdown timeout reached") {
		t.Fatalf("log:\n%s", buf.String())
	}
}
