package components

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLine(t *testing.T) {
	l := parseLine(`{"level":"WARN","date":"2026-10-19T08:15:42.123+0000","logger":"preprod","msg":"warn","Warn":"refund abc#0: sold out"}`)
	if l.Level != "WARN" || l.Time != "08:15:42" || l.Message != "refund abc#0: sold out" {
		t.Fatalf("parsed %+v", l)
	}

	l = parseLine("not json at all")
	if l.Level != "INFO" || l.Message != "not json at all" {
		t.Fatalf("parsed %+v", l)
	}
}

func TestLogViewerRefresh(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	lv := NewLogViewer(dir, "preprod", []string{"tcr", "nftmint"}, 2)
	lv.now = func() time.Time { return now }

	if err := lv.Refresh(); err != nil {
		t.Fatal(err)
	}
	if len(lv.GetLines()) != 1 || !strings.Contains(lv.GetLines()[0].Message, "tcr_20261019.log") {
		t.Fatalf("missing file line: %+v", lv.GetLines())
	}

	lv.NextApp()
	if lv.App() != "nftmint" {
		t.Fatalf("app = %s", lv.App())
	}
	path := filepath.Join(dir, "preprod", "nftmint_20261019.log")
	if lv.GetLogPath() != path {
		t.Fatalf("path = %s", lv.GetLogPath())
	}
	os.MkdirAll(filepath.Dir(path), 0o755)
	body := `{"level":"INFO","Info":"one"}
{"level":"INFO","Info":"two"}
{"level":"ERROR","Err":"three"}
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := lv.Refresh(); err != nil {
		t.Fatal(err)
	}
	lines := lv.GetLines()
	if len(lines) != 2 || lines[0].Message != "two" || lines[1].Level != "ERROR" {
		t.Fatalf("lines = %+v", lines)
	}
	if out := lv.Render(80); !strings.Contains(out, "three") {
		t.Fatalf("render: %s", out)
	}
}
