package rotate

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbj-ee/FileManager/internal/scan"
)

func TestRunParallelCompressesAll(t *testing.T) {
	dir := t.TempDir()

	var candidates []scan.Candidate
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("worker%02d.log", i)
		candidates = append(candidates, writeAgedFile(t, dir, name, []byte(name+" payload\n"), 10))
	}

	rotator := NewRotator(testConfig(dir), log.Default(), nil, nil)
	stats := rotator.RunParallel(context.Background(), scan.Result{Candidates: candidates}, 4)

	assert.Equal(t, 20, stats.Scanned)
	assert.Equal(t, 20, stats.Compressed)
	assert.Equal(t, 0, stats.Failed)

	for _, cand := range candidates {
		_, err := os.Stat(cand.Path)
		assert.True(t, os.IsNotExist(err), "%s should be removed", cand.Path)
		_, err = os.Stat(cand.Path + scan.CompressedSuffix)
		assert.NoError(t, err)
	}
}

func TestRunParallelMatchesSequential(t *testing.T) {
	build := func(t *testing.T) (string, []scan.Candidate) {
		dir := t.TempDir()
		var cands []scan.Candidate
		for i := 0; i < 10; i++ {
			age := 2
			if i%2 == 0 {
				age = 9
			}
			cands = append(cands, writeAgedFile(t, dir, fmt.Sprintf("f%d.log", i), []byte("data\n"), age))
		}
		return dir, cands
	}

	seqDir, seqCands := build(t)
	seqStats := NewRotator(testConfig(seqDir), log.Default(), nil, nil).
		Run(context.Background(), scan.Result{Candidates: seqCands})

	parDir, parCands := build(t)
	parStats := NewRotator(testConfig(parDir), log.Default(), nil, nil).
		RunParallel(context.Background(), scan.Result{Candidates: parCands}, 3)

	assert.Equal(t, seqStats, parStats)
}

func TestRunParallelSingleWorkerFallsBack(t *testing.T) {
	dir := t.TempDir()
	cand := writeAgedFile(t, dir, "solo.log", []byte("solo\n"), 8)

	rotator := NewRotator(testConfig(dir), log.Default(), nil, nil)
	stats := rotator.RunParallel(context.Background(), scan.Result{Candidates: []scan.Candidate{cand}}, 1)

	require.Equal(t, 1, stats.Scanned)
	assert.Equal(t, 1, stats.Compressed)
}

func TestRunParallelDryRunNeverRemoves(t *testing.T) {
	dir := t.TempDir()
	var candidates []scan.Candidate
	for i := 0; i < 8; i++ {
		candidates = append(candidates, writeAgedFile(t, dir, fmt.Sprintf("d%d.log", i), []byte("x\n"), 8))
	}

	cfg := testConfig(dir)
	cfg.DryRun = true
	rotator := NewRotator(cfg, log.Default(), nil, nil)

	stats := rotator.RunParallel(context.Background(), scan.Result{Candidates: candidates}, 4)

	assert.Equal(t, 8, stats.Compressed)
	for _, cand := range candidates {
		_, err := os.Stat(cand.Path)
		assert.NoError(t, err, "dry run must leave %s in place", cand.Path)
	}
}
