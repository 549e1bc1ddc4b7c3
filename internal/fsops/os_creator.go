package fsops

import "os"

// OSCreator implements Creator using real os package calls
type OSCreator struct{}

func (OSCreator) Create(path string) (WriteFile, error) {
	return os.Create(path)
}
