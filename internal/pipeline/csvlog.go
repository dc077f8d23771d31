package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// csvHeader is the observing-log header row from spec.md §6.
const csvHeader = "C time,GMT,Blob #,RA,Dec,RA_OBS,Dec_OBS,FR,PS,ALT,AZ,IR,solve_ms,sigma_as,camera_ms\n"

// CycleRow is one line of the observing log: the capture time and
// camera duration are always populated; the twelve solve-derived
// fields are zero on a no-solve cycle, per spec.md §8's parity
// requirement.
type CycleRow struct {
	CaptureTime   time.Time
	BlobCount     int
	RA, Dec       float64
	RAObs, DecObs float64
	FieldRotation float64
	PixelScale    float64
	Alt, Az       float64
	ImageRotation float64
	SolveMs       float64
	SigmaAs       float64
	CameraMs      float64
}

// Format renders row as one observing-log CSV line.
func (row CycleRow) Format() string {
	return fmt.Sprintf("%d,%s,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.3f,%.3f,%.3f\n",
		row.CaptureTime.Unix(),
		row.CaptureTime.UTC().Format(time.RFC3339),
		row.BlobCount,
		row.RA, row.Dec,
		row.RAObs, row.DecObs,
		row.FieldRotation, row.PixelScale,
		row.Alt, row.Az,
		row.ImageRotation,
		row.SolveMs, row.SigmaAs, row.CameraMs,
	)
}

// ObservingLog appends one CSV line per cycle to a file named after the
// UTC calendar day, creating it with a header row on first use, per
// spec.md §4.5 step 1.
type ObservingLog struct {
	dir     string
	day     string
	f       *os.File
}

// NewObservingLog opens (or creates) dir for daily observing-log files.
func NewObservingLog(dir string) *ObservingLog {
	return &ObservingLog{dir: dir}
}

// Append writes row to the log file for row.CaptureTime's UTC day,
// rotating to a new file (with a fresh header) when the day changes.
func (l *ObservingLog) Append(row CycleRow) error {
	day := row.CaptureTime.UTC().Format("2006-01-02")
	if day != l.day || l.f == nil {
		if err := l.rotate(day); err != nil {
			return err
		}
	}
	_, err := l.f.WriteString(row.Format())
	return err
}

func (l *ObservingLog) rotate(day string) error {
	if l.f != nil {
		l.f.Close()
	}
	path := filepath.Join(l.dir, fmt.Sprintf("observing-%s.csv", day))
	_, statErr := os.Stat(path)
	needsHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("pipeline: open observing log %s: %w", path, err)
	}
	if needsHeader {
		if _, err := f.WriteString(csvHeader); err != nil {
			f.Close()
			return fmt.Errorf("pipeline: write observing log header: %w", err)
		}
	}
	l.f = f
	l.day = day
	return nil
}

// Close closes the currently open log file, if any.
func (l *ObservingLog) Close() error {
	if l.f == nil {
		return nil
	}
	return l.f.Close()
}
