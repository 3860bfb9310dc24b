package observability

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLogger_JSONInProd(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "prod", "api")
	l.Debug().Msg("hidden")
	l.Info().Str("company", "acme").Msg("recomputed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected a single info line, got %q", buf.String())
	}
	var ev map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if ev["service"] != "api" || ev["company"] != "acme" || ev["message"] != "recomputed" {
		t.Fatalf("unexpected event: %v", ev)
	}
}

func TestNewLogger_ConsoleInDev(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "dev", "api")
	l.Debug().Msg("visible")
	if !strings.Contains(buf.String(), "visible") || strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("expected console debug output, got %q", buf.String())
	}
}
