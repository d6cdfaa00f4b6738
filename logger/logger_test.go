package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
)

func TestConfigureRejectsBadValues(t *testing.T) {
	l := Logger()
	if err := l.Configure("nope", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
	if err := l.Configure("info", "xml", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid format")
	}
}

func TestConfigureFileOutput(t *testing.T) {
	l := Logger()
	path := filepath.Join(t.TempDir(), "scflow.log")
	if err := l.Configure("debug", "text", path, 0); err != nil {
		t.Fatalf("configure: %v", err)
	}
}

func TestJSONOutputCarriesComponent(t *testing.T) {
	l := Logger()
	if err := l.Configure("info", "json", "stdout", 0); err != nil {
		t.Fatalf("configure: %v", err)
	}
	var buf bytes.Buffer
	l.SetOutput(&buf)

	l.WithComponent("etl").WithFields(Fields{"contract": "ESU25_FUT_CME"}).Info("pass complete")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["component"] != "etl" {
		t.Errorf("component: got %v want etl", entry["component"])
	}
	if entry["message"] != "pass complete" {
		t.Errorf("message: got %v", entry["message"])
	}
}
