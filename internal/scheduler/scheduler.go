// Package scheduler writes the monthly timesheet to disk on a cron schedule.
package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"nannypay/internal/config"
	appLog "nannypay/internal/log"
	"nannypay/internal/model"
	"nannypay/internal/report"
)

// Exporter renders the timesheet of a month. *report.Service implements it.
type Exporter interface {
	ExportCSV(ctx context.Context, limits model.CalendarLimits, w io.Writer) (string, error)
}

// MonthlyExport writes one month's CSV timesheet into a directory.
type MonthlyExport struct {
	exporter Exporter
	cfg      config.ExportConfig
	loc      *time.Location
	now      func() time.Time
}

func NewMonthlyExport(exporter Exporter, cfg config.ExportConfig, loc *time.Location) *MonthlyExport {
	if loc == nil {
		loc = time.Local
	}
	return &MonthlyExport{exporter: exporter, cfg: cfg, loc: loc, now: time.Now}
}

// RunOnce exports the month preceding the current one.
func (j *MonthlyExport) RunOnce(ctx context.Context) (string, error) {
	year, month := report.PreviousMonth(j.now().In(j.loc))
	return j.RunMonth(ctx, year, month)
}

// RunMonth exports the given month and returns the written path. The file
// is replaced atomically; nothing is written when the export fails.
func (j *MonthlyExport) RunMonth(ctx context.Context, year int, month time.Month) (string, error) {
	limits := report.MonthLimits(year, month, j.loc)
	limits.Name = j.cfg.Name
	limits.Forfait = j.cfg.Forfait
	limits.OvertimeIsPaid = j.cfg.OvertimePaid

	var buf bytes.Buffer
	name, err := j.exporter.ExportCSV(ctx, limits, &buf)
	if err != nil {
		return "", fmt.Errorf("export %04d-%02d: %w", year, int(month), err)
	}

	if err := os.MkdirAll(j.cfg.Dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(j.cfg.Dir, name)
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return "", err
	}
	appLog.Info("timesheet exported", "path", path, "bytes", buf.Len())
	return path, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".nannypay-export-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Run triggers job on spec (5-field cron, evaluated in loc) until ctx is
// canceled. A failed run is logged and retried at the next tick.
func Run(ctx context.Context, spec string, loc *time.Location, job *MonthlyExport) error {
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(cron.WithLocation(loc))
	_, err := c.AddFunc(spec, func() {
		if _, err := job.RunOnce(ctx); err != nil {
			appLog.Error("scheduled export failed", err, "schedule", spec)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduler: invalid schedule %q: %w", spec, err)
	}

	c.Start()
	appLog.Info("export scheduler started", "schedule", spec, "timezone", loc.String())

	<-ctx.Done()
	<-c.Stop().Done()
	appLog.Info("export scheduler stopped")
	return nil
}
