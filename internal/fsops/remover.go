package fsops

// Remover abstracts the filesystem delete operation
// Enables mocking in tests to prove dry-run never deletes
type Remover interface {
	Remove(path string) error
}
