package rotate

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbj-ee/FileManager/internal/fsops"
	"github.com/sbj-ee/FileManager/internal/scan"
)

// TestDryRunNeverRemoves proves the dry-run contract:
// when dry_run=true, ZERO remove syscalls must occur and no archive appears.
func TestDryRunNeverRemoves(t *testing.T) {
	dir := t.TempDir()
	candidates := []scan.Candidate{
		writeAgedFile(t, dir, "old1.log", []byte("aged content one\n"), 10),
		writeAgedFile(t, dir, "old2.log", []byte("aged content two\n"), 8),
		writeAgedFile(t, dir, "fresh.log", []byte("fresh content\n"), 1),
	}

	fakeRemover := &fsops.FakeRemover{Calls: []string{}}

	cfg := testConfig(dir)
	cfg.DryRun = true
	rotator := NewRotator(cfg, log.Default(), nil, nil)
	rotator.SetRemover(fakeRemover)

	stats := rotator.Run(context.Background(), scan.Result{Candidates: candidates})

	// DRY-RUN CONTRACT: zero remove calls
	assert.Empty(t, fakeRemover.Calls, "dry run must never call the remover")

	// Classification still happens
	assert.Equal(t, 3, stats.Scanned)
	assert.Equal(t, 2, stats.Compressed)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, int64(0), stats.BytesSaved, "nothing was compressed, so nothing was saved")

	// Directory contents are untouched
	for _, cand := range candidates {
		_, err := os.Stat(cand.Path)
		assert.NoError(t, err, "%s must survive a dry run", cand.Path)
		_, err = os.Stat(cand.Path + scan.CompressedSuffix)
		assert.True(t, os.IsNotExist(err), "dry run must not create %s", cand.Path+scan.CompressedSuffix)
	}
}

// TestRealModeCallsRemover proves that non-dry-run mode DOES remove originals.
func TestRealModeCallsRemover(t *testing.T) {
	dir := t.TempDir()
	cand := writeAgedFile(t, dir, "old.log", []byte("aged content\n"), 10)

	fakeRemover := &fsops.FakeRemover{Calls: []string{}}

	rotator := NewRotator(testConfig(dir), log.Default(), nil, nil)
	rotator.SetRemover(fakeRemover)

	stats := rotator.Run(context.Background(), scan.Result{Candidates: []scan.Candidate{cand}})

	require.Equal(t, 1, stats.Compressed)
	assert.Equal(t, []string{"rm:" + cand.Path}, fakeRemover.Calls)
}

// TestDryRunMatchesRealClassification runs the same tree twice and checks the
// dry-run counters predict the real ones.
func TestDryRunMatchesRealClassification(t *testing.T) {
	build := func(t *testing.T) (string, []scan.Candidate) {
		dir := t.TempDir()
		return dir, []scan.Candidate{
			writeAgedFile(t, dir, "app.log.1", []byte("one\n"), 9),
			writeAgedFile(t, dir, "app.log.2", []byte("two\n"), 6),
			writeAgedFile(t, dir, "app.log.3", []byte("three\n"), 2),
		}
	}

	dryDir, dryCands := build(t)
	dryCfg := testConfig(dryDir)
	dryCfg.DryRun = true
	dryStats := NewRotator(dryCfg, log.Default(), nil, nil).Run(context.Background(), scan.Result{Candidates: dryCands})

	realDir, realCands := build(t)
	realStats := NewRotator(testConfig(realDir), log.Default(), nil, nil).Run(context.Background(), scan.Result{Candidates: realCands})

	assert.Equal(t, realStats.Scanned, dryStats.Scanned)
	assert.Equal(t, realStats.Compressed, dryStats.Compressed)
	assert.Equal(t, realStats.Skipped, dryStats.Skipped)
	assert.Equal(t, realStats.Failed, dryStats.Failed)
}

// TestDryRunIdempotent: a second dry run over the same directory reports the
// same counts because the first one changed nothing.
func TestDryRunIdempotent(t *testing.T) {
	dir := t.TempDir()
	candidates := []scan.Candidate{
		writeAgedFile(t, dir, "a.log", []byte("aaa\n"), 7),
		writeAgedFile(t, dir, "b.log", []byte("bbb\n"), 3),
	}

	cfg := testConfig(dir)
	cfg.DryRun = true
	rotator := NewRotator(cfg, log.Default(), nil, nil)

	first := rotator.Run(context.Background(), scan.Result{Candidates: candidates})
	second := rotator.Run(context.Background(), scan.Result{Candidates: candidates})

	assert.Equal(t, first, second)
}
