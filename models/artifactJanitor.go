package models

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultRetentionSchedule runs the sweep at the top of every hour (seconds field first).
const DefaultRetentionSchedule = "0 0 * * * *"

// ArtifactJanitor periodically removes downloaded images and generated
// artifacts once they are older than MaxAge. LINE fetches the URLs after the
// reply is sent, so the pipeline leaves its own output in place.
type ArtifactJanitor struct {
	Logger     *slog.Logger
	Dir        string
	MaxAge     time.Duration
	cronRunner *cron.Cron
}

/*
NewArtifactJanitor schedules a sweep of dir.

Parameters:
- dir: The processing directory.
- maxAge: Files whose modification time is older than this are removed.
- schedule: Cron expression with a seconds field.

Returns:
- *ArtifactJanitor: Not yet started.
- error: If the schedule cannot be parsed.
*/
func NewArtifactJanitor(logger *slog.Logger, dir string, maxAge time.Duration, schedule string) (*ArtifactJanitor, error) {
	aj := &ArtifactJanitor{
		Logger: logger,
		Dir:    dir,
		MaxAge: maxAge,
		cronRunner: cron.New(
			cron.WithSeconds(),
			cron.WithChain(
				cron.SkipIfStillRunning(cron.DefaultLogger),
				cron.Recover(cron.DefaultLogger),
			),
		),
	}

	if _, err := aj.cronRunner.AddFunc(schedule, aj.run); err != nil {
		return nil, &ConfigError{Field: "retention.schedule", Reason: err.Error()}
	}
	return aj, nil
}

func (aj *ArtifactJanitor) run() {
	const function = "run"
	removed, err := aj.Sweep(time.Now())
	if err != nil {
		aj.Logger.Error("Artifact sweep failed", "function", function, "dir", aj.Dir, "error", err)
		return
	}
	aj.Logger.Info("Artifact sweep finished", "function", function, "dir", aj.Dir, "removed", removed)
}

// Sweep removes the expired files the pipeline wrote into Dir and returns how
// many were removed: composites, thumbnails, and the source photos they were
// made from. Every other file, and every subdirectory, is left alone.
func (aj *ArtifactJanitor) Sweep(now time.Time) (int, error) {
	const function = "Sweep"
	entries, err := os.ReadDir(aj.Dir)
	if err != nil {
		return 0, fmt.Errorf("read processing dir: %w", err)
	}

	generated := make(map[string]bool)
	for _, entry := range entries {
		if IsArtifactName(entry.Name()) {
			generated[artifactSource(entry.Name())] = true
		}
	}

	cutoff := now.Add(-aj.MaxAge)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() {
			continue
		}
		if !IsArtifactName(name) && !generated[ArtifactPrefix(name)] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(aj.Dir, name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			aj.Logger.Warn("Unable to remove artifact", "function", function, "path", path, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// artifactSource strips the artifact suffix, giving the source photo's prefix.
func artifactSource(name string) string {
	if strings.HasSuffix(name, ComposedSuffix) {
		return strings.TrimSuffix(name, ComposedSuffix)
	}
	return strings.TrimSuffix(name, ThumbnailSuffix)
}

func (aj *ArtifactJanitor) Start() {
	aj.cronRunner.Start()
}

// Stop waits for a running sweep to finish or ctx to expire.
func (aj *ArtifactJanitor) Stop(ctx context.Context) {
	done := aj.cronRunner.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		aj.Logger.Warn("Artifact janitor shutdown timed out", "function", "Stop")
	}
}
