package e2e

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	expect "github.com/Netflix/go-expect"
	"github.com/creack/pty"

	"github.com/abelbrown/medwatch/internal/model"
)

// buildMedwatch builds the medwatch binary for testing.
func buildMedwatch(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("e2e: skipped in -short mode")
	}
	binPath := filepath.Join(t.TempDir(), "medwatch")

	rootDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	// We are in test/e2e
	rootDir = filepath.Join(rootDir, "..", "..")

	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/medwatch")
	cmd.Dir = rootDir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build failed: %v\n%s", err, out)
	}
	return binPath
}

func TestE2E_OnceJSON(t *testing.T) {
	binPath := buildMedwatch(t)
	srv := fixtureServer()
	defer srv.Close()

	homeDir := t.TempDir()
	if err := writeFixtureConfig(homeDir, srv); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cmd := exec.Command(binPath, "once", "-json")
	cmd.Env = fixtureEnv(homeDir)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("once failed: %v\n%s", err, stderr.String())
	}

	var res model.Result
	if err := json.Unmarshal(out, &res); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	onc, ok := res.Category("oncology")
	if !ok {
		t.Fatalf("oncology missing: %s", out)
	}
	if len(onc.Articles) != 3 {
		t.Fatalf("articles = %d, want 3 (stale item dropped)\n%s", len(onc.Articles), out)
	}
	if onc.Articles[0].Title != "Fixture immunothérapie du cancer" || !onc.Articles[0].IsNew || !onc.Articles[0].Official {
		t.Errorf("first article = %+v", onc.Articles[0])
	}
	if onc.EnglishCount() != 1 || onc.Articles[2].Source != "PubMed" {
		t.Errorf("expected PubMed article last: %+v", onc.Articles)
	}

	// The run is recorded and events are logged.
	if _, err := os.Stat(filepath.Join(homeDir, ".medwatch", "medwatch.db")); err != nil {
		t.Errorf("run history not created: %v", err)
	}
	events, err := os.ReadFile(filepath.Join(homeDir, ".medwatch", "events.jsonl"))
	if err != nil || !bytes.Contains(events, []byte(`"kind":"run.complete"`)) {
		t.Errorf("event log missing run.complete: %v\n%s", err, events)
	}

	stats := exec.Command(binPath, "stats")
	stats.Env = fixtureEnv(homeDir)
	statsOut, err := stats.CombinedOutput()
	if err != nil {
		t.Fatalf("stats failed: %v\n%s", err, statsOut)
	}
	if !bytes.Contains(statsOut, []byte("Recent runs (1)")) || !bytes.Contains(statsOut, []byte("Fixture Onco")) {
		t.Errorf("stats output:\n%s", statsOut)
	}
}

func TestE2E_TUISearch(t *testing.T) {
	binPath := buildMedwatch(t)
	srv := fixtureServer()
	defer srv.Close()

	homeDir := t.TempDir()
	if err := writeFixtureConfig(homeDir, srv); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cmd := exec.Command(binPath)
	cmd.Env = fixtureEnv(homeDir)

	ptmx, err := pty.Start(cmd)
	if err != nil {
		t.Fatalf("failed to start pty: %v", err)
	}
	defer func() {
		_ = ptmx.Close()
		_ = cmd.Process.Kill()
	}()

	if err := pty.Setsize(ptmx, &pty.Winsize{Cols: 160, Rows: 40}); err != nil {
		t.Fatalf("failed to set pty size: %v", err)
	}

	var outputBuf bytes.Buffer
	console, err := expect.NewConsole(
		expect.WithStdin(ptmx),
		expect.WithStdout(&outputBuf),
		expect.WithDefaultTimeout(10*time.Second),
	)
	if err != nil {
		t.Fatalf("failed to create console: %v", err)
	}
	defer console.Close()

	t.Log("Waiting for first run...")
	if _, err := console.ExpectString("chimiothérapie"); err != nil {
		t.Fatalf("first run not rendered: %v\nScreen:\n%s", err, outputBuf.String())
	}

	time.Sleep(300 * time.Millisecond)
	if _, err := console.Send("/"); err != nil {
		t.Fatalf("failed to send slash: %v", err)
	}
	if _, err := console.ExpectString("un titre"); err != nil {
		t.Fatalf("search prompt not found: %v\nScreen:\n%s", err, outputBuf.String())
	}

	if _, err := console.Send("checkpoint"); err != nil {
		t.Fatalf("failed to send query: %v", err)
	}
	if _, err := console.ExpectString("1/3"); err != nil {
		t.Fatalf("search count not shown: %v\nScreen:\n%s", err, outputBuf.String())
	}

	if _, err := console.Send("\r"); err != nil {
		t.Fatalf("failed to send Enter: %v", err)
	}
	time.Sleep(300 * time.Millisecond)
	if _, err := console.Send("q"); err != nil {
		t.Fatalf("failed to send q: %v", err)
	}

	done := make(chan error)
	go func() { done <- cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Error("process did not exit after 'q'")
	}
}
