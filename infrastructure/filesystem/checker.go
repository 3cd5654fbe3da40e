package filesystem

import (
	"errors"
	"io/fs"
	"os"

	"video-to-mp3/domain/conversion"
)

// Checker implements conversion.FileChecker using the os package
type Checker struct{}

// NewChecker creates a new filesystem checker
func NewChecker() *Checker {
	return &Checker{}
}

// Exists returns true if the path exists
func (c *Checker) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir returns true if the path is an existing directory
func (c *Checker) IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Remover deletes temporary media
type Remover struct{}

// NewRemover creates a new remover
func NewRemover() *Remover {
	return &Remover{}
}

// Remove deletes path. A path that is already gone is not an error.
func (r *Remover) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Ensure Checker implements conversion.FileChecker
var _ conversion.FileChecker = (*Checker)(nil)
