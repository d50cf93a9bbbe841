package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestLoggerHonoursLevelAndService(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "dispatch-api", "WARN")
	log.Info("dropped")
	log.Warn("kept", "vehicle_id", "TAXI001")

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("expected exactly one JSON record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "kept" || rec["service"] != "dispatch-api" || rec["vehicle_id"] != "TAXI001" {
		t.Fatalf("unexpected record %v", rec)
	}
}
