package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"nannypay/internal/config"
	"nannypay/internal/model"
)

type fakeExporter struct {
	limits model.CalendarLimits
	err    error
}

func (f *fakeExporter) ExportCSV(ctx context.Context, limits model.CalendarLimits, w io.Writer) (string, error) {
	f.limits = limits
	if f.err != nil {
		return "", f.err
	}
	if _, err := io.WriteString(w, "09:00;;\n"); err != nil {
		return "", err
	}
	return fmt.Sprintf("feuille-de-presence-%02d-%d.csv", int(limits.Start.Month()), limits.Start.Year()), nil
}

func TestRunOnceWritesPreviousMonth(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	forfait := 120.0
	exp := &fakeExporter{}
	job := NewMonthlyExport(exp, config.ExportConfig{Dir: dir, Name: "nounou", Forfait: &forfait, OvertimePaid: true}, time.UTC)
	job.now = func() time.Time { return time.Date(2021, time.January, 1, 6, 0, 0, 0, time.UTC) }

	path, err := job.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if filepath.Base(path) != "feuille-de-presence-12-2020.csv" {
		t.Fatalf("unexpected path %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "09:00;;\n" {
		t.Fatalf("unexpected content %q", data)
	}

	l := exp.limits
	if l.Name != "nounou" || l.Forfait == nil || *l.Forfait != 120 || !l.OvertimeIsPaid {
		t.Fatalf("export settings not forwarded: %+v", l)
	}
	if !l.Start.Equal(time.Date(2020, time.December, 1, 0, 0, 5, 0, time.UTC)) {
		t.Fatalf("unexpected start %s", l.Start)
	}
}

func TestRunMonthFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("overlap")
	job := NewMonthlyExport(&fakeExporter{err: boom}, config.ExportConfig{Dir: dir}, time.UTC)

	if _, err := job.RunMonth(context.Background(), 2021, time.March); !errors.Is(err, boom) {
		t.Fatalf("expected export error, got %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty dir, got %d entries", len(entries))
	}
}

func TestRunRejectsInvalidSchedule(t *testing.T) {
	job := NewMonthlyExport(&fakeExporter{}, config.ExportConfig{Dir: t.TempDir()}, time.UTC)
	if err := Run(context.Background(), "every full moon", time.UTC, job); err == nil {
		t.Fatal("expected error")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	job := NewMonthlyExport(&fakeExporter{}, config.ExportConfig{Dir: t.TempDir()}, time.UTC)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Run(ctx, "0 6 1 * *", time.UTC, job) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
