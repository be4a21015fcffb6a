package store

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/me/hpcq/pkg/model"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleJob(n int) *model.JobRecord {
	return &model.JobRecord{
		ID:        fmt.Sprintf("job_test-%d", n),
		StudentID: fmt.Sprintf("S10%02d", n),
		JobName:   fmt.Sprintf("simulation-%d", n),
		TotalTime: 10 + n,
		Priority:  1 + n%10,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func sampleRun() *model.Run {
	return &model.Run{
		ID:        "run_test-1",
		Algorithm: model.AlgorithmRoundRobin,
		JobCount:  2,
		StartedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

// --- Migration tests ---

func TestMigrate_Idempotent(t *testing.T) {
	st := testStore(t)
	// Migrate a second time should not error.
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

// --- Pending queue tests ---

func TestAppendJob_AssignsPositions(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		job := sampleJob(i)
		if err := st.AppendJob(ctx, job); err != nil {
			t.Fatalf("AppendJob %d: %v", i, err)
		}
		if job.Position != i {
			t.Errorf("job %d position = %d, want %d", i, job.Position, i)
		}
	}
}

func TestListPending_QueueOrder(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	want := []*model.JobRecord{sampleJob(1), sampleJob(2), sampleJob(3)}
	for _, job := range want {
		if err := st.AppendJob(ctx, job); err != nil {
			t.Fatalf("AppendJob: %v", err)
		}
	}

	got, err := st.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("pending = %d jobs, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID {
			t.Errorf("pending[%d].ID = %q, want %q", i, got[i].ID, want[i].ID)
		}
		if got[i].StudentID != want[i].StudentID || got[i].JobName != want[i].JobName ||
			got[i].TotalTime != want[i].TotalTime || got[i].Priority != want[i].Priority {
			t.Errorf("pending[%d] = %+v, want %+v", i, got[i], want[i])
		}
		if !got[i].CreatedAt.Equal(want[i].CreatedAt) {
			t.Errorf("pending[%d].CreatedAt = %v, want %v", i, got[i].CreatedAt, want[i].CreatedAt)
		}
	}
}

func TestListPending_Empty(t *testing.T) {
	st := testStore(t)
	got, err := st.ListPending(context.Background())
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("pending = %d jobs, want 0", len(got))
	}
}

func TestReplacePending_Clear(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if err := st.AppendJob(ctx, sampleJob(i)); err != nil {
			t.Fatalf("AppendJob: %v", err)
		}
	}
	if err := st.ReplacePending(ctx, nil); err != nil {
		t.Fatalf("ReplacePending(nil): %v", err)
	}
	got, err := st.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("pending after clear = %d jobs, want 0", len(got))
	}

	// Positions restart from 1 after a clear.
	job := sampleJob(9)
	if err := st.AppendJob(ctx, job); err != nil {
		t.Fatalf("AppendJob after clear: %v", err)
	}
	if job.Position != 1 {
		t.Errorf("position after clear = %d, want 1", job.Position)
	}
}

func TestReplacePending_Reassign(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		if err := st.AppendJob(ctx, sampleJob(i)); err != nil {
			t.Fatalf("AppendJob: %v", err)
		}
	}

	replacement := []*model.JobRecord{sampleJob(7), sampleJob(8), sampleJob(9)}
	if err := st.ReplacePending(ctx, replacement); err != nil {
		t.Fatalf("ReplacePending: %v", err)
	}

	got, err := st.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("pending = %d jobs, want 3", len(got))
	}
	for i, job := range got {
		if job.Position != i+1 {
			t.Errorf("pending[%d].Position = %d, want %d", i, job.Position, i+1)
		}
	}
}

// --- Run tests ---

func TestRun_Lifecycle(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	run := sampleRun()
	if err := st.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	got, err := st.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got == nil {
		t.Fatal("GetRun returned nil for existing run")
	}
	if got.Algorithm != model.AlgorithmRoundRobin || got.FinishedAt != nil {
		t.Errorf("run = %+v, want unfinished round-robin run", got)
	}

	finished := run.StartedAt.Add(5 * time.Millisecond)
	run.FinishedAt = &finished
	run.JobCount = 4
	if err := st.FinishRun(ctx, run); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	got, err = st.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.FinishedAt == nil || !got.FinishedAt.Equal(finished) {
		t.Errorf("FinishedAt = %v, want %v", got.FinishedAt, finished)
	}
	if got.JobCount != 4 {
		t.Errorf("JobCount = %d, want 4", got.JobCount)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	st := testStore(t)
	got, err := st.GetRun(context.Background(), "run_missing")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got != nil {
		t.Errorf("GetRun = %+v, want nil", got)
	}
}

func TestListRuns_Pagination(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 5; i++ {
		run := &model.Run{
			ID:        fmt.Sprintf("run_test-%d", i),
			Algorithm: model.AlgorithmPriority,
			StartedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := st.CreateRun(ctx, run); err != nil {
			t.Fatalf("CreateRun: %v", err)
		}
	}

	runs, total, err := st.ListRuns(ctx, model.ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	// Newest first.
	if runs[0].ID != "run_test-4" {
		t.Errorf("runs[0].ID = %q, want run_test-4", runs[0].ID)
	}
}

// --- Ledger tests ---

func TestTrace_AppendAndList(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Millisecond)

	entries := []*model.TraceEntry{
		{RunID: "run_1", Seq: 1, StudentID: "S1", JobName: "a", TimeGranted: 5, RemainingAfter: 7, Cycle: 1, Algorithm: model.AlgorithmRoundRobin, At: at},
		{RunID: "run_1", Seq: 2, StudentID: "S2", JobName: "b", TimeGranted: 3, RemainingAfter: 0, Cycle: 1, Algorithm: model.AlgorithmRoundRobin, At: at},
		{RunID: "run_2", Seq: 1, StudentID: "S3", JobName: "c", TimeGranted: 9, RemainingAfter: 0, Cycle: 1, Algorithm: model.AlgorithmPriority, At: at},
	}
	for _, entry := range entries {
		if err := st.AppendTrace(ctx, entry); err != nil {
			t.Fatalf("AppendTrace: %v", err)
		}
	}

	got, err := st.ListTrace(ctx, "run_1")
	if err != nil {
		t.Fatalf("ListTrace: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("trace for run_1 = %d entries, want 2", len(got))
	}
	if got[0].Seq != 1 || got[1].Seq != 2 {
		t.Errorf("trace order = %d, %d, want 1, 2", got[0].Seq, got[1].Seq)
	}
	if got[1].StudentID != "S2" || got[1].TimeGranted != 3 || got[1].RemainingAfter != 0 {
		t.Errorf("trace[1] = %+v", got[1])
	}
	if !got[0].At.Equal(at) {
		t.Errorf("trace[0].At = %v, want %v", got[0].At, at)
	}
}

func TestCompleted_AppendAndList(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Millisecond)

	for i := 0; i < 3; i++ {
		rec := &model.CompletedRecord{
			JobID:       fmt.Sprintf("job_%d", i),
			RunID:       "run_1",
			StudentID:   "S1",
			JobName:     fmt.Sprintf("job-%d", i),
			TotalTime:   10,
			Priority:    5,
			Algorithm:   model.AlgorithmRoundRobin,
			CompletedAt: at,
		}
		if err := st.AppendCompleted(ctx, rec); err != nil {
			t.Fatalf("AppendCompleted: %v", err)
		}
	}

	recs, total, err := st.ListCompleted(ctx, model.DefaultListOptions())
	if err != nil {
		t.Fatalf("ListCompleted: %v", err)
	}
	if total != 3 || len(recs) != 3 {
		t.Fatalf("completed = %d/%d, want 3/3", len(recs), total)
	}
	// Append order preserved.
	for i, rec := range recs {
		if rec.JobID != fmt.Sprintf("job_%d", i) {
			t.Errorf("completed[%d].JobID = %q, want job_%d", i, rec.JobID, i)
		}
	}
}

func TestListCompleted_Pagination(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		rec := &model.CompletedRecord{
			JobID:       fmt.Sprintf("job_%02d", i),
			RunID:       "run_1",
			StudentID:   "S1",
			JobName:     "j",
			TotalTime:   1,
			Priority:    1,
			Algorithm:   model.AlgorithmPriority,
			CompletedAt: time.Now().UTC(),
		}
		if err := st.AppendCompleted(ctx, rec); err != nil {
			t.Fatalf("AppendCompleted: %v", err)
		}
	}

	recs, total, err := st.ListCompleted(ctx, model.ListOptions{Limit: 10, Offset: 25})
	if err != nil {
		t.Fatalf("ListCompleted: %v", err)
	}
	if total != 30 {
		t.Errorf("total = %d, want 30", total)
	}
	if len(recs) != 5 {
		t.Errorf("page = %d records, want 5", len(recs))
	}
	if len(recs) > 0 && recs[0].JobID != "job_25" {
		t.Errorf("page start = %q, want job_25", recs[0].JobID)
	}
}
