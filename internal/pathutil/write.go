package pathutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFile streams write into a temporary file next to path and renames it
// into place once write and the close succeed. On failure path is left as
// it was.
func WriteFile(path string, perm os.FileMode, write func(w io.Writer) error) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating %s: %w", RedactPath(path), err)
	}
	tmp := f.Name()
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Chmod(perm); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("setting mode of %s: %w", RedactPath(path), err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing %s: %w", RedactPath(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("placing %s: %w", RedactPath(path), err)
	}
	return nil
}
