package fsops

// FakeRemover implements Remover for testing
// Records all delete calls without performing actual deletions
type FakeRemover struct {
	Calls []string
	Err   error // Returned from every call when set
}

func (f *FakeRemover) Remove(path string) error {
	f.Calls = append(f.Calls, "rm:"+path)
	return f.Err
}
