package main

import (
	"os"
	"strings"
	"testing"
)

func TestLogsCommandPrintsTail(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir logs: %v", err)
	}
	content := "first\nsecond\nthird\n"
	if err := os.WriteFile(env.cfg.LogFilePath(), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, env, "logs", "-n", "2")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Contains(out, "first") {
		t.Fatalf("expected only trailing lines, got %q", out)
	}
	requireContains(t, out, "second\nthird\n")
}

func TestLogsCommandRejectsNegativeLines(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env, "logs", "--lines", "-1"); err == nil {
		t.Fatal("expected error for negative --lines")
	}
}
