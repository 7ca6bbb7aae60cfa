package cmd

import (
	"fmt"

	"github.com/beeflow/beeflow/pkg/directory"
)

// NewDirectory loads the organizational directory snapshot the assignee
// resolver consults. An empty path yields an empty directory, which makes
// every hierarchy-based assignee unresolvable but keeps the API usable for
// definition management.
func NewDirectory(path string) directory.Directory {
	if path == "" {
		return directory.NewMemory(directory.Snapshot{})
	}

	dir, err := directory.NewFromFile(path)
	if err != nil {
		panic(fmt.Errorf("failed to load directory: %w", err))
	}

	return dir
}
