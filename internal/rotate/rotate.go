package rotate

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sbj-ee/FileManager/internal/config"
	"github.com/sbj-ee/FileManager/internal/fsops"
	"github.com/sbj-ee/FileManager/internal/history"
	"github.com/sbj-ee/FileManager/internal/limiter"
	"github.com/sbj-ee/FileManager/internal/metrics"
	"github.com/sbj-ee/FileManager/internal/safety"
	"github.com/sbj-ee/FileManager/internal/scan"

	"github.com/prometheus/client_golang/prometheus"
)

// Per-file error taxonomy. Only scan.ErrInvalidDirectory aborts a run; these
// are downgraded to a Failed outcome and processing continues.
var (
	ErrCompression  = errors.New("compression failed")
	ErrVerification = errors.New("verification failed")
	ErrDeletion     = errors.New("deletion failed")
)

// RotateLogger interface for structured logging in rotation
type RotateLogger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// rotateStdLogger wraps standard log.Logger to implement RotateLogger
type rotateStdLogger struct {
	*log.Logger
}

func (l *rotateStdLogger) Info(msg string, args ...interface{}) {
	l.logWithLevel("INFO", msg, args...)
}

func (l *rotateStdLogger) Error(msg string, args ...interface{}) {
	l.logWithLevel("ERROR", msg, args...)
}

func (l *rotateStdLogger) Debug(msg string, args ...interface{}) {
	l.logWithLevel("DEBUG", msg, args...)
}

func (l *rotateStdLogger) logWithLevel(level, msg string, args ...interface{}) {
	var parts []interface{}
	parts = append(parts, fmt.Sprintf("[%s]", level), msg)
	parts = append(parts, args...)
	l.Logger.Println(parts...)
}

// Metrics interface for rotation metrics
type Metrics interface {
	FilesCompressedTotal() prometheus.Counter
	FilesSkippedTotal() prometheus.Counter
	FilesFailedTotal() prometheus.Counter
	BytesSavedTotal() prometheus.Counter
}

// rotateMetrics wraps global metrics to implement Metrics interface
type rotateMetrics struct{}

func (m *rotateMetrics) FilesCompressedTotal() prometheus.Counter { return metrics.FilesCompressedTotal }
func (m *rotateMetrics) FilesSkippedTotal() prometheus.Counter    { return metrics.FilesSkippedTotal }
func (m *rotateMetrics) FilesFailedTotal() prometheus.Counter     { return metrics.FilesFailedTotal }
func (m *rotateMetrics) BytesSavedTotal() prometheus.Counter      { return metrics.BytesSavedTotal }

// Rotator compresses aged files and removes verified originals. One Rotator
// serves one run; it owns the RunStats for that run.
type Rotator struct {
	logger        RotateLogger
	metrics       Metrics
	logFile       *os.File // Optional file for structured event lines
	dryRun        bool
	verifyContent bool
	threshold     time.Duration
	thresholdDays int
	remover       fsops.Remover
	creator       fsops.Creator
	validator     *safety.Validator
	db            *history.RotationDB // Rotation history; nil disables recording
	cpu           *limiter.CPULimiter
	now           func() time.Time
	eventMu       sync.Mutex // Serializes event-line writes across workers
}

// NewRotator creates a Rotator for one run of the given configuration.
func NewRotator(cfg *config.Config, logger *log.Logger, logFile *os.File, db *history.RotationDB) *Rotator {
	rotateLogger := &rotateStdLogger{Logger: logger}
	if logger == nil {
		rotateLogger.Logger = log.Default()
	}

	var cpu *limiter.CPULimiter
	if cfg.ResourceLimits.MaxCPUPercent > 0 {
		cpu = limiter.NewCPULimiter(cfg.ResourceLimits.MaxCPUPercent)
	}

	return &Rotator{
		logger:        rotateLogger,
		metrics:       &rotateMetrics{},
		logFile:       logFile,
		dryRun:        cfg.DryRun,
		verifyContent: !cfg.SkipContentVerify,
		threshold:     cfg.AgeThreshold(),
		thresholdDays: cfg.AgeOffDays,
		remover:       fsops.OSRemover{},
		creator:       fsops.OSCreator{},
		validator:     safety.NewValidator(cfg.Directory, nil),
		db:            db,
		cpu:           cpu,
		now:           time.Now,
	}
}

// SetRemover swaps the filesystem remover (tests)
func (r *Rotator) SetRemover(remover fsops.Remover) { r.remover = remover }

// SetCreator swaps the archive file creator (tests)
func (r *Rotator) SetCreator(creator fsops.Creator) { r.creator = creator }

// SetValidator swaps the safety validator (tests)
func (r *Rotator) SetValidator(v *safety.Validator) { r.validator = v }

// SetClock swaps the time source (tests)
func (r *Rotator) SetClock(now func() time.Time) { r.now = now }

// Run processes every candidate sequentially and returns the aggregated
// stats. Enumeration errors from the scan are folded into the failed count.
// Cancellation is checked between candidates, never mid-file: one candidate's
// compress-verify-delete sequence is the atomic unit of work.
func (r *Rotator) Run(ctx context.Context, result scan.Result) RunStats {
	r.logger.Info("Starting rotation", "total_candidates", len(result.Candidates), "dry_run", r.dryRun)

	var stats RunStats
	for _, errMsg := range result.Errors {
		stats.Failed++
		r.metrics.FilesFailedTotal().Inc()
		r.logStructured("ERROR", errMsg, 0, 0, "enumeration error")
	}

	for _, cand := range result.Candidates {
		select {
		case <-ctx.Done():
			r.logger.Info("Rotation cancelled", "processed", stats.Scanned, "remaining", len(result.Candidates)-stats.Scanned)
			return stats
		default:
		}

		if r.cpu != nil {
			r.cpu.Throttle()
		}

		outcome := r.Process(cand)
		stats.Scanned++
		stats.Apply(outcome)
	}

	r.logger.Info("Rotation complete",
		"scanned", stats.Scanned,
		"compressed", stats.Compressed,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"bytes_saved", stats.BytesSaved,
	)

	return stats
}

// Process applies the rotation pipeline to one candidate and returns exactly
// one Outcome. Unless dry-run, a Compressed outcome means the archive was
// written, verified, and the original removed, in that order.
func (r *Rotator) Process(cand scan.Candidate) Outcome {
	outcome := r.evaluate(cand)

	switch {
	case outcome.Kind == KindCompressed:
		r.metrics.FilesCompressedTotal().Inc()
		r.metrics.BytesSavedTotal().Add(float64(outcome.BytesSaved))
	case outcome.Skipped():
		r.metrics.FilesSkippedTotal().Inc()
	default:
		r.metrics.FilesFailedTotal().Inc()
	}

	return outcome
}

func (r *Rotator) evaluate(cand scan.Candidate) Outcome {
	// Suffix guard, defense in depth even though the scanner filters these
	if strings.HasSuffix(cand.Path, scan.CompressedSuffix) {
		outcome := Outcome{Kind: KindSkippedAlreadyCompressed}
		r.record("SKIP", cand, outcome, "already compressed")
		return outcome
	}

	if cand.Age(r.now()) < r.threshold {
		outcome := Outcome{Kind: KindSkippedTooRecent}
		r.logger.Debug("Skipped (too recent)", "path", cand.Path)
		r.record("SKIP", cand, outcome, "too recent")
		return outcome
	}

	if r.dryRun {
		return r.classifyDry(cand)
	}

	outcome := r.compressAndRemove(cand)

	switch outcome.Kind {
	case KindCompressed:
		r.logger.Info("Compressed",
			"path", cand.Path,
			"archive", cand.Path+scan.CompressedSuffix,
			"bytes_saved", outcome.BytesSaved,
		)
		r.record("COMPRESS", cand, outcome, "")
	case KindFailed:
		r.logger.Error("Failed to rotate", "path", cand.Path, "error", outcome.Err)
		r.record("ERROR", cand, outcome, outcome.Err.Error())
	default:
		r.record("SKIP", cand, outcome, outcome.Kind.String())
	}

	return outcome
}

// classifyDry reports what a real run would do without touching the
// filesystem. Bytes saved is 0 since no compression happened to measure.
func (r *Rotator) classifyDry(cand scan.Candidate) Outcome {
	if err := r.validator.ValidateTarget(cand.Path); err != nil {
		outcome := Outcome{Kind: KindFailed, Err: fmt.Errorf("unsafe path %s: %w", cand.Path, err)}
		r.record("ERROR", cand, outcome, err.Error())
		return outcome
	}

	info, err := os.Stat(cand.Path)
	if err != nil {
		outcome := Outcome{Kind: KindFailed, Err: fmt.Errorf("%w: %v", ErrCompression, err)}
		r.record("ERROR", cand, outcome, err.Error())
		return outcome
	}
	if !info.Mode().IsRegular() {
		outcome := Outcome{Kind: KindSkippedNotRegularFile}
		r.record("SKIP", cand, outcome, "not a regular file")
		return outcome
	}

	r.logger.Info("[DRY RUN] Would compress",
		"path", cand.Path,
		"archive", cand.Path+scan.CompressedSuffix,
		"size", cand.Size,
	)
	outcome := Outcome{Kind: KindCompressed}
	r.record("DRY_RUN", cand, outcome, "")
	return outcome
}

// compressAndRemove is the non-dry-run pipeline: compress to a sibling
// archive, verify it, then delete the original. The original is never
// deleted unless verification passed.
func (r *Rotator) compressAndRemove(cand scan.Candidate) Outcome {
	archive := cand.Path + scan.CompressedSuffix

	if err := r.validator.ValidateTarget(cand.Path); err != nil {
		return Outcome{Kind: KindFailed, Err: fmt.Errorf("unsafe path %s: %w", cand.Path, err)}
	}

	info, err := os.Stat(cand.Path)
	if err != nil {
		// File vanished between scan and processing; a per-file failure,
		// not a crash.
		return Outcome{Kind: KindFailed, Err: fmt.Errorf("%w: %v", ErrCompression, err)}
	}
	if !info.Mode().IsRegular() {
		return Outcome{Kind: KindSkippedNotRegularFile}
	}
	originalSize := info.Size()

	if err := r.compress(cand.Path, archive); err != nil {
		// Partial output is already cleaned up; original is intact.
		return Outcome{Kind: KindFailed, Err: err}
	}

	compressedSize, err := r.verify(cand.Path, archive)
	if err != nil {
		r.removeArtifact(archive)
		return Outcome{Kind: KindFailed, Err: err}
	}

	if err := r.remover.Remove(cand.Path); err != nil {
		// Both files stay on disk; this must not masquerade as success or
		// disk usage silently doubles.
		return Outcome{Kind: KindFailed, Err: fmt.Errorf("%w: removing original %s: %v", ErrDeletion, cand.Path, err)}
	}

	saved := originalSize - compressedSize
	if saved < 0 {
		saved = 0
	}
	return Outcome{Kind: KindCompressed, BytesSaved: saved}
}

// compress streams src through gzip into dst. A stale archive at dst is
// silently overwritten. On any error the partial dst is removed and the
// error returned; src is never touched.
func (r *Rotator) compress(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", ErrCompression, src, err)
	}
	defer in.Close()

	out, err := r.creator.Create(dst)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrCompression, dst, err)
	}

	gz := gzip.NewWriter(out)
	gz.Name = filepath.Base(src)

	_, copyErr := io.Copy(gz, in)
	closeErr := gz.Close()
	syncErr := out.Sync()
	if err := out.Close(); copyErr == nil && closeErr == nil && syncErr == nil {
		closeErr = err
	}

	if copyErr != nil || closeErr != nil || syncErr != nil {
		r.removeArtifact(dst)
		err := copyErr
		if err == nil {
			err = closeErr
		}
		if err == nil {
			err = syncErr
		}
		return fmt.Errorf("%w: writing %s: %v", ErrCompression, dst, err)
	}
	return nil
}

// verify confirms the archive is usable before the original may be deleted:
// it must exist and be non-empty, and unless size-only verification was
// configured its decompressed bytes must equal the original file.
func (r *Rotator) verify(src, archive string) (int64, error) {
	info, err := os.Stat(archive)
	if err != nil {
		return 0, fmt.Errorf("%w: archive missing: %v", ErrVerification, err)
	}
	if info.Size() == 0 {
		return 0, fmt.Errorf("%w: archive %s is empty", ErrVerification, archive)
	}

	if r.verifyContent {
		if err := r.compareContents(src, archive); err != nil {
			return 0, err
		}
	}

	return info.Size(), nil
}

// compareContents decompresses the archive and compares it byte-for-byte
// against the original.
func (r *Rotator) compareContents(src, archive string) error {
	in, err := os.Open(archive)
	if err != nil {
		return fmt.Errorf("%w: reopening archive: %v", ErrVerification, err)
	}
	defer in.Close()

	gz, err := gzip.NewReader(in)
	if err != nil {
		return fmt.Errorf("%w: malformed gzip stream in %s: %v", ErrVerification, archive, err)
	}
	defer gz.Close()

	orig, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: reopening original: %v", ErrVerification, err)
	}
	defer orig.Close()

	if !streamsEqual(gz, orig) {
		return fmt.Errorf("%w: decompressed %s does not match original", ErrVerification, archive)
	}
	return nil
}

// streamsEqual compares two readers chunk by chunk without buffering either
// file whole.
func streamsEqual(a, b io.Reader) bool {
	bufA := make([]byte, 64*1024)
	bufB := make([]byte, 64*1024)
	for {
		nA, errA := io.ReadFull(a, bufA)
		nB, errB := io.ReadFull(b, bufB)
		if nA != nB || !bytes.Equal(bufA[:nA], bufB[:nB]) {
			return false
		}
		aDone := errA == io.EOF || errA == io.ErrUnexpectedEOF
		bDone := errB == io.EOF || errB == io.ErrUnexpectedEOF
		if aDone || bDone {
			return aDone && bDone && errA != nil && errB != nil
		}
		if errA != nil || errB != nil {
			return false
		}
	}
}

// removeArtifact cleans up a partial or malformed archive. Best effort: a
// leftover partial is logged, never escalated over the primary error.
func (r *Rotator) removeArtifact(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := r.remover.Remove(path); err != nil {
		r.logger.Error("Failed to clean up partial archive", "path", path, "error", err)
	}
}

// record emits the structured event line and the history row for one outcome
func (r *Rotator) record(action string, cand scan.Candidate, outcome Outcome, detail string) {
	r.logStructured(action, cand.Path, cand.Size, outcome.BytesSaved, detail)

	if r.db != nil {
		entry := history.Rotation{
			Timestamp:     r.now(),
			Action:        action,
			Path:          cand.Path,
			Size:          cand.Size,
			BytesSaved:    outcome.BytesSaved,
			AgeDays:       int(cand.Age(r.now()).Hours() / 24),
			ThresholdDays: r.thresholdDays,
			Detail:        detail,
		}
		if err := r.db.Record(entry); err != nil {
			// Don't fail rotation if the history write fails
			r.logger.Error("Failed to record to history database", "error", err)
		}
	}
}

// logStructured logs with structured format: timestamp, action, path, size, bytes saved
func (r *Rotator) logStructured(action, path string, size, saved int64, detail string) {
	logEntry := fmt.Sprintf("[%s] %s path=%s size=%d saved=%d",
		r.now().UTC().Format(time.RFC3339),
		action,
		path,
		size,
		saved,
	)

	if detail != "" {
		escaped := strings.ReplaceAll(detail, `"`, `\"`)
		logEntry += fmt.Sprintf(` detail="%s"`, escaped)
	}

	if r.logFile != nil {
		r.eventMu.Lock()
		r.logFile.WriteString(logEntry + "\n")
		r.logFile.Sync()
		r.eventMu.Unlock()
	}

	r.logger.Debug(logEntry)
}
