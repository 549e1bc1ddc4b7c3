package rotate

// Kind classifies the result of processing one candidate.
type Kind int

const (
	KindCompressed Kind = iota
	KindSkippedAlreadyCompressed
	KindSkippedTooRecent
	KindSkippedNotRegularFile
	KindFailed
)

// Outcome is the per-file result of the rotation pipeline. Every candidate
// yields exactly one Outcome.
type Outcome struct {
	Kind       Kind
	BytesSaved int64 // Original size minus archive size; 0 for dry-run and non-compressed kinds
	Err        error // Set only for KindFailed
}

// Skipped reports whether the outcome is any of the skip kinds.
func (o Outcome) Skipped() bool {
	switch o.Kind {
	case KindSkippedAlreadyCompressed, KindSkippedTooRecent, KindSkippedNotRegularFile:
		return true
	}
	return false
}

func (k Kind) String() string {
	switch k {
	case KindCompressed:
		return "compressed"
	case KindSkippedAlreadyCompressed:
		return "skipped_already_compressed"
	case KindSkippedTooRecent:
		return "skipped_too_recent"
	case KindSkippedNotRegularFile:
		return "skipped_not_regular_file"
	case KindFailed:
		return "failed"
	}
	return "unknown"
}
