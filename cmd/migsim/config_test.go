package main

import "testing"

func TestParseArgsRequiresInputDir(t *testing.T) {
	_, err := parseArgs(nil)
	if err == nil {
		t.Fatalf("expected an error for missing input dir")
	}
}

func TestParseArgsDefaults(t *testing.T) {
	opts, err := parseArgs([]string{"/tmp/mig"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if opts.executionMode != defaultExecutionMode {
		t.Fatalf("expected default execution mode, got %q", opts.executionMode)
	}

	if opts.stragglerThresholdPct != defaultStragglerThreshold {
		t.Fatalf("expected default straggler threshold, got %v", opts.stragglerThresholdPct)
	}
}

func TestParseArgsRoundRobinRequiresCap(t *testing.T) {
	_, err := parseArgs([]string{"/tmp/mig", "--execution-mode", "round_robin"})
	if err == nil {
		t.Fatalf("expected an error when round_robin lacks a global cap")
	}
}

func TestParseArgsRoundRobinAcceptsCap(t *testing.T) {
	opts, err := parseArgs([]string{"/tmp/mig", "--execution-mode", "round_robin", "--max-concurrent-workers", "4"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if opts.maxConcurrentWorkers != 4 {
		t.Fatalf("expected max-concurrent-workers=4, got %d", opts.maxConcurrentWorkers)
	}
}

func TestParseArgsRejectsUnknownMode(t *testing.T) {
	_, err := parseArgs([]string{"/tmp/mig", "--execution-mode", "bogus"})
	if err == nil {
		t.Fatalf("expected an error for unknown execution mode")
	}
}
