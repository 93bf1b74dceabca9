package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"warning", WARN},
		{"error", ERROR},
		{"unknown", INFO},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetOutput(&buf)
	l.SetLevel(WARN)

	l.Info("不应输出")
	l.Warn("应当输出 %d", 42)

	out := buf.String()
	if strings.Contains(out, "不应输出") {
		t.Errorf("INFO 日志不应在 WARN 级别输出: %q", out)
	}
	if !strings.Contains(out, "应当输出 42") {
		t.Errorf("WARN 日志缺失: %q", out)
	}
}

func TestSetEnabled(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetOutput(&buf)
	l.SetEnabled(false)

	l.Error("禁用后不输出")
	l.LogEvent("TEST", false, 1, "禁用后不输出")

	if buf.Len() != 0 {
		t.Errorf("禁用后仍有输出: %q", buf.String())
	}
}

func TestWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetOutput(&buf)

	l.With("run", "abc123").Info("extract")

	if !strings.Contains(buf.String(), "abc123") {
		t.Errorf("子 logger 缺少字段: %q", buf.String())
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "snapreader.log")

	l := New()
	l.SetOutput(nil)
	if err := l.SetFile(true, path); err != nil {
		t.Fatalf("SetFile 失败: %v", err)
	}
	l.LogEvent("MATCH", true, 12.5, "board matched")
	if err := l.Close(); err != nil {
		t.Fatalf("Close 失败: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取日志文件失败: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("日志不是 JSON 行: %v (%q)", err, data)
	}
	if entry["category"] != "MATCH" || entry["status"] != "OK" {
		t.Errorf("字段不正确: %+v", entry)
	}
}
