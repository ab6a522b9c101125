package main

import (
	"bytes"
	"strings"
	"testing"

	internaltesting "github.com/saberlist/saberlist/internal/testing"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner Defaults", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})

		if runner.config == nil {
			t.Error("expected default config")
		}
		if runner.logger == nil {
			t.Error("expected default logger")
		}
		if runner.output == nil {
			t.Error("expected default output writer")
		}
		if runner.httpClient == nil {
			t.Error("expected default HTTP client")
		}
	})

	t.Run("Registers All Commands", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		want := []string{"setup", "crawl", "playlist", "songs", "runs"}
		if len(commands) != len(want) {
			t.Fatalf("expected %d commands, got %d", len(want), len(commands))
		}
		for i, name := range want {
			if commands[i].Name != name {
				t.Errorf("expected command %s at position %d, got %s", name, i, commands[i].Name)
			}
		}
	})

	t.Run("WriteJSON", func(t *testing.T) {
		t.Run("Compact", func(t *testing.T) {
			var buf bytes.Buffer
			runner := NewRunner(RunnerOpts{Output: &buf})

			if err := runner.writeJSON(map[string]int{"count": 3}, false); err != nil {
				t.Fatalf("failed to write JSON: %v", err)
			}
			if buf.String() != "{\"count\":3}\n" {
				t.Errorf("unexpected output: %q", buf.String())
			}
		})

		t.Run("Pretty", func(t *testing.T) {
			var buf bytes.Buffer
			runner := NewRunner(RunnerOpts{Output: &buf})

			if err := runner.writeJSON(map[string]int{"count": 3}, true); err != nil {
				t.Fatalf("failed to write JSON: %v", err)
			}
			if !strings.Contains(buf.String(), "  \"count\": 3") {
				t.Errorf("expected indented output, got %q", buf.String())
			}
		})

		t.Run("Unmarshalable Value", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
			if err := runner.writeJSON(make(chan int), false); err == nil {
				t.Error("expected marshal error")
			}
		})

		t.Run("Failing Writer", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &internaltesting.FWriter{}})
			if err := runner.writeJSON("data", false); err == nil {
				t.Error("expected write error")
			}
		})

		t.Run("Writer Fails On Newline", func(t *testing.T) {
			var buf bytes.Buffer
			limited := internaltesting.NewLimitedWriter(1, 0, &buf)
			runner := NewRunner(RunnerOpts{Output: &limited})

			if err := runner.writeJSON("data", false); err == nil {
				t.Error("expected error when trailing newline write fails")
			}
		})
	})

	t.Run("WritePlain", func(t *testing.T) {
		var buf bytes.Buffer
		runner := NewRunner(RunnerOpts{Output: &buf})

		if err := runner.writePlain("songs: %d\n", 7); err != nil {
			t.Fatalf("failed to write: %v", err)
		}
		if buf.String() != "songs: 7\n" {
			t.Errorf("unexpected output: %q", buf.String())
		}
	})
}
