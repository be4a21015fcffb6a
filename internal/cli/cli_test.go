package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/me/hpcq/internal/config"
	"github.com/me/hpcq/internal/engine"
	"github.com/me/hpcq/internal/runner"
	"github.com/me/hpcq/internal/server"
	"github.com/me/hpcq/internal/store"
)

// startTestServer starts a server with an in-memory SQLite store and returns the URL.
func startTestServer(t *testing.T) string {
	t.Helper()
	srvLogger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := store.NewSQLiteStore(":memory:", srvLogger)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	eng := engine.New(engine.DefaultConfig(), srvLogger)
	run := runner.New(st, eng, srvLogger)
	srv := server.New(config.DefaultServerConfig(), st, run, srvLogger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

// submitTestJob queues a job via HTTP and returns its ID.
func submitTestJob(t *testing.T, serverURL, student, name string, totalTime, priority int) string {
	t.Helper()

	srvLogger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	c := NewClient(serverURL, srvLogger)

	resp, err := c.Post("/api/v1/jobs/", map[string]any{
		"student_id": student,
		"job_name":   name,
		"total_time": totalTime,
		"priority":   priority,
	})
	if err != nil {
		t.Fatalf("submit job: %v", err)
	}
	var data map[string]any
	json.Unmarshal(resp.Data, &data)
	return data["id"].(string)
}

// drainQueue drains the queue via HTTP and returns the run ID.
func drainQueue(t *testing.T, serverURL string) string {
	t.Helper()

	srvLogger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	c := NewClient(serverURL, srvLogger)

	resp, err := c.Post("/api/v1/runs/", map[string]any{"algorithm": "rr"})
	if err != nil {
		t.Fatalf("drain queue: %v", err)
	}
	var data map[string]any
	json.Unmarshal(resp.Data, &data)
	return data["run_id"].(string)
}

// runCLI executes a command and captures what it writes to stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()

	var errBuf bytes.Buffer
	root.SetOut(&errBuf)
	root.SetErr(&errBuf)
	root.SetArgs(args)

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := root.Execute()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String(), err
}

func TestSubmitCommand(t *testing.T) {
	url := startTestServer(t)

	output, err := runCLI(t,
		"--server", url,
		"submit", "-s", "alice", "-n", "matrix-mult", "-t", "10", "-p", "7",
	)
	if err != nil {
		t.Fatalf("submit error: %v\noutput: %s", err, output)
	}
	if !strings.Contains(output, "Job queued: job_") {
		t.Errorf("expected 'Job queued: job_' in output, got: %s", output)
	}
	if !strings.Contains(output, "queue position 1") {
		t.Errorf("expected queue position 1 in output, got: %s", output)
	}
}

func TestSubmitCommand_Batch(t *testing.T) {
	url := startTestServer(t)

	batch := filepath.Join(t.TempDir(), "jobs.yml")
	content := "- student_id: alice\n  job_name: sim-a\n  total_time: 12\n  priority: 3\n" +
		"- student_id: bob\n  job_name: sim-b\n  total_time: 3\n  priority: 8\n"
	if err := os.WriteFile(batch, []byte(content), 0o644); err != nil {
		t.Fatalf("write batch file: %v", err)
	}

	output, err := runCLI(t, "--server", url, "submit", "-f", batch)
	if err != nil {
		t.Fatalf("submit batch error: %v\noutput: %s", err, output)
	}
	if !strings.Contains(output, "2 job(s) queued.") {
		t.Errorf("expected batch confirmation in output, got: %s", output)
	}
	if !strings.Contains(output, "queue position 2") {
		t.Errorf("expected second job at position 2, got: %s", output)
	}
}

func TestSubmitCommand_Invalid(t *testing.T) {
	url := startTestServer(t)

	_, err := runCLI(t,
		"--server", url,
		"submit", "-s", "alice", "-n", "bad-job", "-t", "0", "-p", "99",
	)
	if err == nil {
		t.Fatal("expected error for invalid job request")
	}
}

func TestQueueCommand_Empty(t *testing.T) {
	url := startTestServer(t)

	output, err := runCLI(t, "--server", url, "queue")
	if err != nil {
		t.Fatalf("queue error: %v", err)
	}
	if !strings.Contains(output, "Queue is empty.") {
		t.Errorf("expected empty-queue message, got: %s", output)
	}
}

func TestQueueCommand(t *testing.T) {
	url := startTestServer(t)
	submitTestJob(t, url, "alice", "matrix-mult", 10, 7)
	submitTestJob(t, url, "bob", "fft", 3, 2)

	output, err := runCLI(t, "--server", url, "queue")
	if err != nil {
		t.Fatalf("queue error: %v", err)
	}
	if !strings.Contains(output, "POS") {
		t.Errorf("expected table header in output, got: %s", output)
	}
	if !strings.Contains(output, "alice") || !strings.Contains(output, "bob") {
		t.Errorf("expected both students in output, got: %s", output)
	}
}

func TestDrainCommand(t *testing.T) {
	url := startTestServer(t)
	submitTestJob(t, url, "alice", "matrix-mult", 12, 7)
	submitTestJob(t, url, "bob", "fft", 3, 2)

	output, err := runCLI(t, "--server", url, "drain", "-a", "rr")
	if err != nil {
		t.Fatalf("drain error: %v\noutput: %s", err, output)
	}
	if !strings.Contains(output, "Run run_") {
		t.Errorf("expected run ID in output, got: %s", output)
	}
	if !strings.Contains(output, "2 job(s) scheduled") {
		t.Errorf("expected 2 jobs scheduled, got: %s", output)
	}

	// The queue must be empty afterwards.
	output, err = runCLI(t, "--server", url, "queue")
	if err != nil {
		t.Fatalf("queue error: %v", err)
	}
	if !strings.Contains(output, "Queue is empty.") {
		t.Errorf("expected empty queue after drain, got: %s", output)
	}
}

func TestDrainCommand_EmptyQueue(t *testing.T) {
	url := startTestServer(t)

	output, err := runCLI(t, "--server", url, "drain")
	if err != nil {
		t.Fatalf("drain error: %v", err)
	}
	if !strings.Contains(output, "nothing to schedule") {
		t.Errorf("expected empty-queue message, got: %s", output)
	}
}

func TestDrainCommand_UnknownAlgorithm(t *testing.T) {
	url := startTestServer(t)
	submitTestJob(t, url, "alice", "matrix-mult", 10, 7)

	_, err := runCLI(t, "--server", url, "drain", "-a", "fifo")
	if err == nil {
		t.Fatal("expected error for unknown algorithm")
	}
}

func TestRunsCommand(t *testing.T) {
	url := startTestServer(t)
	submitTestJob(t, url, "alice", "matrix-mult", 10, 7)
	runID := drainQueue(t, url)

	output, err := runCLI(t, "--server", url, "runs")
	if err != nil {
		t.Fatalf("runs error: %v", err)
	}
	if !strings.Contains(output, runID) {
		t.Errorf("expected run %s in output, got: %s", runID, output)
	}
	if !strings.Contains(output, "ROUND_ROBIN") {
		t.Errorf("expected algorithm in output, got: %s", output)
	}
}

func TestTraceCommand(t *testing.T) {
	url := startTestServer(t)
	submitTestJob(t, url, "alice", "matrix-mult", 12, 7)
	runID := drainQueue(t, url)

	output, err := runCLI(t, "--server", url, "trace", runID)
	if err != nil {
		t.Fatalf("trace error: %v", err)
	}
	if !strings.Contains(output, "CYCLE") {
		t.Errorf("expected CYCLE column for round robin trace, got: %s", output)
	}
	// 12s at the default 5s quantum takes three slices.
	if !strings.Contains(output, "matrix-mult") {
		t.Errorf("expected job name in trace, got: %s", output)
	}
}

func TestTraceCommand_UnknownRun(t *testing.T) {
	url := startTestServer(t)

	_, err := runCLI(t, "--server", url, "trace", "run_missing")
	if err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestCompletedCommand(t *testing.T) {
	url := startTestServer(t)
	submitTestJob(t, url, "alice", "matrix-mult", 10, 7)
	submitTestJob(t, url, "bob", "fft", 3, 2)
	drainQueue(t, url)

	output, err := runCLI(t, "--server", url, "completed")
	if err != nil {
		t.Fatalf("completed error: %v", err)
	}
	if !strings.Contains(output, "alice") || !strings.Contains(output, "bob") {
		t.Errorf("expected both students in ledger, got: %s", output)
	}
}
