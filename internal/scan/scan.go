package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CompressedSuffix marks files that are already rotated and must never be
// selected again.
const CompressedSuffix = ".gz"

// ErrInvalidDirectory aborts the whole run: the configured root is missing or
// not a directory. Every other scan problem is a per-entry failure.
var ErrInvalidDirectory = errors.New("invalid directory")

// Logger interface for structured logging
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// stdLogger wraps standard log.Logger to implement Logger interface
type stdLogger struct {
	*log.Logger
}

func (l *stdLogger) Info(msg string, args ...interface{}) {
	l.logWithLevel("INFO", msg, args...)
}

func (l *stdLogger) Warn(msg string, args ...interface{}) {
	l.logWithLevel("WARN", msg, args...)
}

func (l *stdLogger) Debug(msg string, args ...interface{}) {
	l.logWithLevel("DEBUG", msg, args...)
}

func (l *stdLogger) logWithLevel(level, msg string, args ...interface{}) {
	var parts []interface{}
	parts = append(parts, fmt.Sprintf("[%s]", level), msg)
	parts = append(parts, args...)
	l.Logger.Println(parts...)
}

// Candidate describes one regular file eligible for age evaluation.
// Constructed during enumeration, immutable afterwards.
type Candidate struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Age returns the elapsed time since the candidate was last modified.
func (c Candidate) Age(now time.Time) time.Duration {
	return now.Sub(c.ModTime)
}

// Result is the outcome of one directory scan: the candidates in traversal
// order, plus the per-entry failures the walk stepped over.
type Result struct {
	Candidates []Candidate
	Errors     []string
}

// Scanner enumerates rotation candidates under a root directory
type Scanner struct {
	logger Logger
}

// NewScanner creates a new Scanner with the given logger
func NewScanner(logger *log.Logger) *Scanner {
	if logger == nil {
		logger = log.Default()
	}
	return &Scanner{
		logger: &stdLogger{Logger: logger},
	}
}

// Scan enumerates regular files under root. Non-recursive mode lists direct
// children only; recursive mode walks the whole subtree. Directories and
// files already carrying the compressed suffix are excluded. An unreadable
// subdirectory or a failed stat is recorded in Result.Errors and the walk
// continues; only an invalid root aborts.
func (s *Scanner) Scan(root string, recursive bool) (Result, error) {
	var result Result

	info, err := os.Stat(root)
	if err != nil {
		return result, fmt.Errorf("%w: %s: %v", ErrInvalidDirectory, root, err)
	}
	if !info.IsDir() {
		return result, fmt.Errorf("%w: %s is not a directory", ErrInvalidDirectory, root)
	}

	s.logger.Info("Starting directory scan",
		"path", root,
		"recursive", recursive,
	)

	if recursive {
		s.walkTree(root, &result)
	} else {
		s.listChildren(root, &result)
	}

	s.logger.Info("Directory scan complete",
		"path", root,
		"candidates_found", len(result.Candidates),
		"enumeration_errors", len(result.Errors),
	)

	return result, nil
}

// listChildren enumerates direct children of root.
func (s *Scanner) listChildren(root string, result *Result) {
	entries, err := os.ReadDir(root)
	if err != nil {
		// Root passed the Stat check but became unreadable; treat as a
		// per-entry failure so the run still produces a summary.
		s.recordError(result, root, err)
		return
	}

	for _, entry := range entries {
		s.consider(filepath.Join(root, entry.Name()), entry, result)
	}
}

// walkTree enumerates all regular files in the subtree under root.
func (s *Scanner) walkTree(root string, result *Result) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				s.logger.Warn("Permission denied", "path", path)
			}
			s.recordError(result, path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}
		s.consider(path, d, result)
		return nil
	})
}

// consider applies the selection predicates to a single directory entry.
// Symlinks are evaluated at their target's metadata; a broken link becomes a
// per-entry failure.
func (s *Scanner) consider(path string, entry fs.DirEntry, result *Result) {
	if entry.IsDir() {
		return
	}
	if strings.HasSuffix(path, CompressedSuffix) {
		s.logger.Debug("Skipped (already compressed)", "path", path)
		return
	}

	// entry.Info() reports the link itself for symlinks; Stat follows it.
	info, err := os.Stat(path)
	if err != nil {
		s.recordError(result, path, err)
		return
	}
	if !info.Mode().IsRegular() {
		s.logger.Debug("Skipped (not a regular file)", "path", path)
		return
	}

	result.Candidates = append(result.Candidates, Candidate{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	})
}

func (s *Scanner) recordError(result *Result, path string, err error) {
	s.logger.Warn("Failed to read entry", "path", path, "error", err)
	result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, err))
}
