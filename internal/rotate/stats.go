package rotate

import "fmt"

// RunStats accumulates per-run counters. It is a pure fold over the Outcome
// sequence; worker-pool runs fold into per-worker partials and Merge them.
type RunStats struct {
	Scanned    int
	Compressed int
	Skipped    int
	Failed     int
	BytesSaved int64
}

// Apply folds one outcome into the stats.
func (s *RunStats) Apply(o Outcome) {
	switch {
	case o.Kind == KindCompressed:
		s.Compressed++
		s.BytesSaved += o.BytesSaved
	case o.Skipped():
		s.Skipped++
	default:
		s.Failed++
	}
}

// Merge adds another partial into s.
func (s *RunStats) Merge(other RunStats) {
	s.Scanned += other.Scanned
	s.Compressed += other.Compressed
	s.Skipped += other.Skipped
	s.Failed += other.Failed
	s.BytesSaved += other.BytesSaved
}

func (s RunStats) String() string {
	return fmt.Sprintf("Scanned: %d, Compressed: %d, Skipped: %d, Failed: %d, Bytes saved: %d",
		s.Scanned, s.Compressed, s.Skipped, s.Failed, s.BytesSaved)
}
