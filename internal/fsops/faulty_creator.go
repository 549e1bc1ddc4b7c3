package fsops

import "os"

// FaultyCreator implements Creator for testing
// It really creates the file but starts failing writes once FailAfter bytes
// have been accepted, leaving a truncated artifact behind for cleanup paths
// to deal with
type FaultyCreator struct {
	FailAfter int
	Err       error // Returned from the failing write
}

func (f *FaultyCreator) Create(path string) (WriteFile, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &faultyFile{file: file, remaining: f.FailAfter, err: f.Err}, nil
}

type faultyFile struct {
	file      *os.File
	remaining int
	err       error
}

func (w *faultyFile) Write(p []byte) (int, error) {
	if len(p) > w.remaining {
		n, _ := w.file.Write(p[:w.remaining])
		w.remaining = 0
		return n, w.err
	}
	w.remaining -= len(p)
	return w.file.Write(p)
}

func (w *faultyFile) Sync() error  { return w.file.Sync() }
func (w *faultyFile) Close() error { return w.file.Close() }
