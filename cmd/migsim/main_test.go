package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func writeTestSubset(t *testing.T, migDir string, segments []string, body string) {
	t.Helper()

	parts := append([]string{migDir, "metadata", "subsets"}, segments...)
	path := filepath.Join(parts...)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func observedRunDeps() (runDeps, *observer.ObservedLogs) {
	core, observed := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	return runDeps{newLogger: func(string) (*zap.Logger, error) { return logger, nil }}, observed
}

func TestRunSucceedsAndWritesReports(t *testing.T) {
	migDir := filepath.Join(t.TempDir(), "mig-1")
	writeTestSubset(t, migDir, []string{"ks", "0", "LARGE", "1", "10", "subset-0"}, "a,10\n")

	outputDir := t.TempDir()
	deps, observed := observedRunDeps()

	var stdout, stderr bytes.Buffer

	args := []string{
		migDir,
		"--output-dir", outputDir,
		"--output-name", "run1",
		"--large-threads", "1",
		"--large-max-workers", "1",
	}

	code := run(context.Background(), args, deps, &stdout, &stderr)
	if code != exitCodeSuccess {
		t.Fatalf("expected success, got %d, stderr=%s", code, stderr.String())
	}

	if _, err := os.Stat(filepath.Join(outputDir, "run1_workers.csv")); err != nil {
		t.Fatalf("expected workers.csv to exist: %v", err)
	}

	found := false

	for _, entry := range observed.All() {
		if entry.Message == "starting migsim" {
			found = true
		}
	}

	if !found {
		t.Fatalf("expected a startup log entry")
	}
}

func TestRunFailsOnMissingInputDir(t *testing.T) {
	deps, _ := observedRunDeps()

	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{filepath.Join(t.TempDir(), "missing")}, deps, &stdout, &stderr)
	if code != exitCodeInvalidArgs {
		t.Fatalf("expected invalid-args exit code, got %d", code)
	}
}

func TestRunRejectsMissingPositionalArg(t *testing.T) {
	deps, _ := observedRunDeps()

	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"--execution-mode", "concurrent"}, deps, &stdout, &stderr)
	if code != exitCodeInvalidArgs {
		t.Fatalf("expected invalid-args exit code, got %d", code)
	}
}

func TestRunRejectsRoundRobinWithoutCap(t *testing.T) {
	migDir := filepath.Join(t.TempDir(), "mig-1")
	writeTestSubset(t, migDir, []string{"ks", "0", "LARGE", "1", "10", "subset-0"}, "a,10\n")

	deps, _ := observedRunDeps()

	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{migDir, "--execution-mode", "round_robin"}, deps, &stdout, &stderr)
	if code != exitCodeInvalidArgs {
		t.Fatalf("expected invalid-args exit code, got %d", code)
	}
}
