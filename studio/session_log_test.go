package studio

import (
	"errors"
	"fmt"
	"testing"
)

func TestSessionLog_Lifecycle(t *testing.T) {
	log := NewSessionLog(0)
	run := log.Start("Can-Am Ryker drifting at sunset", "abc123")
	if run.Status != RunPending || run.ID == "" || run.Timestamp == 0 {
		t.Fatalf("Start() = %+v", run)
	}

	done, err := log.Finish(run.ID, RunCompleted, "")
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if done.Status != RunCompleted {
		t.Errorf("status = %s, want completed", done.Status)
	}

	if _, err := log.Finish(run.ID, RunFailed, "late"); !errors.Is(err, ErrRunFinalized) {
		t.Errorf("second Finish() error = %v, want ErrRunFinalized", err)
	}
	got, _ := log.Get(run.ID)
	if got.Status != RunCompleted || got.Note != "" {
		t.Errorf("terminal status overwritten: %+v", got)
	}
}

func TestSessionLog_FinishErrors(t *testing.T) {
	log := NewSessionLog(0)
	run := log.Start("p", "k")

	if _, err := log.Finish(run.ID, RunPending, ""); err == nil {
		t.Error("expected error for non-terminal status")
	}
	if _, err := log.Finish("missing", RunFailed, ""); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("error = %v, want ErrRunNotFound", err)
	}
}

func TestSessionLog_NewestFirstAndBounded(t *testing.T) {
	log := NewSessionLog(3)
	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, log.Start(fmt.Sprintf("prompt %d", i), "k").ID)
	}

	runs := log.List()
	if len(runs) != 3 {
		t.Fatalf("len = %d, want 3", len(runs))
	}
	for i, want := range []string{ids[4], ids[3], ids[2]} {
		if runs[i].ID != want {
			t.Errorf("runs[%d] = %s, want %s", i, runs[i].ID, want)
		}
	}
	if _, ok := log.Get(ids[0]); ok {
		t.Error("oldest run should have been dropped")
	}

	runs[0].Status = RunFailed
	if got, _ := log.Get(ids[4]); got.Status != RunPending {
		t.Error("List() returned shared state")
	}
}

func TestRunStatus_Terminal(t *testing.T) {
	tests := map[RunStatus]bool{
		RunPending:   false,
		RunCompleted: true,
		RunCached:    true,
		RunFailed:    true,
	}
	for status, want := range tests {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}
