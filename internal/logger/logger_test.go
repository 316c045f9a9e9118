package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "json")
	t.Cleanup(func() { InitWithWriter(&buf, "INFO", "text") })

	Info("enrolled machine", "realm", "ad.example.com")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if record["msg"] != "enrolled machine" {
		t.Errorf("msg = %v", record["msg"])
	}
	if record["realm"] != "ad.example.com" {
		t.Errorf("realm = %v", record["realm"])
	}
	if record["level"] != "INFO" {
		t.Errorf("level = %v", record["level"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "WARN", "text")
	t.Cleanup(func() { InitWithWriter(&buf, "INFO", "text") })

	Debug("hidden debug")
	Info("hidden info")
	Warn("visible warning")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("levels below WARN leaked into output:\n%s", out)
	}
	if !strings.Contains(out, "visible warning") {
		t.Errorf("WARN record missing:\n%s", out)
	}
}

func TestTextOutputCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text")

	Info("joined realm", "realm", "ad.example.com", "invoker", "local")

	out := buf.String()
	for _, want := range []string{"joined realm", "realm=ad.example.com", "invoker=local"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestInvalidLevelIgnored(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text")

	SetLevel("CHATTY")
	Info("still logged")

	if !strings.Contains(buf.String(), "still logged") {
		t.Error("invalid level change must not alter filtering")
	}
}
