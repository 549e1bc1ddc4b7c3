package fsops

import "io"

// WriteFile is the subset of *os.File the compressor needs from a freshly
// created archive: streaming writes, a durability barrier, and close.
type WriteFile interface {
	io.WriteCloser
	Sync() error
}

// Creator abstracts archive file creation
// Enables injecting write failures in tests to prove partial archives get
// cleaned up
type Creator interface {
	Create(path string) (WriteFile, error)
}
