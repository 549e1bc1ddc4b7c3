package exitcodes

// Exit codes for the filemanager binaries
// A run that started successfully exits 0 even when individual files failed;
// partial failure is reported in the summary, not the exit status.
const (
	Success          = 0 // Run completed (possibly with per-file failures)
	InvalidConfig    = 2 // Configuration file or flags invalid
	InvalidDirectory = 3 // Target directory missing or not a directory
	RuntimeError     = 4 // Run could not start (database, logging, scheduler)
)
