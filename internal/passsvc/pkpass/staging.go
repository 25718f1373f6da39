package pkpass

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Staging is a directory owned by exactly one materialization. Its name
// carries the pass id and a random suffix so concurrent requests for the
// same pass never share files.
type Staging struct {
	Dir string
}

// Stage writes the bundle into a fresh directory under root.
func (b *Bundle) Stage(root string, passID int64) (*Staging, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create staging root: %w", err)
	}

	dir := filepath.Join(root, fmt.Sprintf("%d-%s", passID, uuid.NewString()))
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	st := &Staging{Dir: dir}

	for name, data := range b.files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			st.Remove()
			return nil, err
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			st.Remove()
			return nil, fmt.Errorf("stage %s: %w", name, err)
		}
	}
	return st, nil
}

// Bundle reads the staged files back. Anything besides bundle content
// (an old manifest or signature) is ignored.
func (s *Staging) Bundle() (*Bundle, error) {
	files, err := readBundleDir(s.Dir)
	if err != nil {
		return nil, err
	}
	return &Bundle{files: files}, nil
}

func (s *Staging) Remove() error {
	return os.RemoveAll(s.Dir)
}
