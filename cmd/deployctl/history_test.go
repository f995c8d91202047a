// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"deployctl/internal/history"
	"deployctl/internal/pipeline"
)

func TestRenderHistoryEmptyLedger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	renderHistory(&buf, nil)

	if !strings.Contains(buf.String(), "No runs recorded yet.") {
		t.Errorf("output = %q, want the empty-ledger notice", buf.String())
	}
}

func TestRenderHistoryListsRuns(t *testing.T) {
	t.Parallel()

	started := time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local)
	runs := []history.Run{
		{
			ID:         "22222222-2222-2222-2222-222222222222",
			StartedAt:  started.Add(time.Hour),
			FinishedAt: started.Add(time.Hour + 3*time.Second),
			Flags:      "production",
			Status:     pipeline.StatusFailed,
			ExitCode:   7,
			Stages: []history.StageRecord{
				{Seq: 0, Name: "build", Status: pipeline.StatusOK},
				{Seq: 1, Name: "test", Status: pipeline.StatusOK},
				{Seq: 2, Name: "server", Status: pipeline.StatusFailed, Detail: "server exited"},
			},
		},
		{
			ID:         "11111111-1111-1111-1111-111111111111",
			StartedAt:  started,
			FinishedAt: started.Add(2 * time.Second),
			Flags:      "none",
			Status:     pipeline.StatusOK,
			ExitCode:   0,
			Stages: []history.StageRecord{
				{Seq: 0, Name: "test", Status: pipeline.StatusOK},
				{Seq: 1, Name: "server", Status: pipeline.StatusOK},
			},
		},
	}

	var buf bytes.Buffer
	renderHistory(&buf, runs)
	out := buf.String()

	wantTokens := []string{
		"Run History",
		"2026-03-14 10:30:00",
		"2026-03-14 09:30:00",
		"flags: production",
		"flags: none",
		"exit 7",
		"build ok",
		"server failed (server exited)",
	}
	for _, token := range wantTokens {
		if !strings.Contains(out, token) {
			t.Errorf("output missing %q:\n%s", token, out)
		}
	}

	// The failed run renders before the passing one, same order as given.
	if strings.Index(out, "10:30:00") > strings.Index(out, "09:30:00") {
		t.Errorf("runs rendered out of order:\n%s", out)
	}
}

func TestRenderHistoryOmitsDetailForPassingStages(t *testing.T) {
	t.Parallel()

	runs := []history.Run{
		{
			StartedAt:  time.Now(),
			FinishedAt: time.Now(),
			Flags:      "none",
			Status:     pipeline.StatusOK,
			Stages: []history.StageRecord{
				{Seq: 0, Name: "test", Status: pipeline.StatusOK, Detail: "leftover"},
			},
		},
	}

	var buf bytes.Buffer
	renderHistory(&buf, runs)

	if strings.Contains(buf.String(), "leftover") {
		t.Errorf("output = %q, must not show detail for a passing stage", buf.String())
	}
}

func TestHistoryCommandListsRecordedRuns(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.svc.ledger.recorded = []history.Run{
		{
			StartedAt:  time.Now().Add(-time.Minute),
			FinishedAt: time.Now(),
			Flags:      "test-only",
			Status:     pipeline.StatusOK,
			Stages: []history.StageRecord{
				{Seq: 0, Name: "test", Status: pipeline.StatusOK},
			},
		},
	}

	var out bytes.Buffer
	root := newRootCommand(h.app)
	root.SetArgs([]string{"history", "-n", "5"})
	root.SetOut(&out)
	root.SetErr(io.Discard)

	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("history command: %v", err)
	}

	if h.svc.ledger.gotLimit != 5 {
		t.Errorf("limit = %d, want 5", h.svc.ledger.gotLimit)
	}
	if !strings.Contains(out.String(), "flags: test-only") {
		t.Errorf("output = %q, want the recorded run in it", out.String())
	}
	if !h.svc.ledger.closed {
		t.Error("ledger left open after listing")
	}
}

func TestHistoryCommandDefaultLimit(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	var out bytes.Buffer
	root := newRootCommand(h.app)
	root.SetArgs([]string{"history"})
	root.SetOut(&out)
	root.SetErr(io.Discard)

	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("history command: %v", err)
	}

	if h.svc.ledger.gotLimit != history.DefaultListLimit {
		t.Errorf("limit = %d, want %d", h.svc.ledger.gotLimit, history.DefaultListLimit)
	}
	if !strings.Contains(out.String(), "No runs recorded yet.") {
		t.Errorf("output = %q, want the empty-ledger notice", out.String())
	}
}
