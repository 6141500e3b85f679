package harvest

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Archive keeps a copy of every snapshot a run read, named by content hash so
// an unchanged page is stored once no matter how often it is harvested.
type Archive struct {
	dir string
}

func NewArchive(dir string) *Archive {
	return &Archive{dir: dir}
}

// Keep stores the snapshot unless a copy with the same hash exists and
// returns the archived path.
func (a *Archive) Keep(snap Snapshot) (string, error) {
	if snap.SHA256 == "" {
		return "", errors.New("snapshot has no hash")
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", err
	}

	dst := filepath.Join(a.dir, snap.SHA256+filepath.Ext(snap.Path))
	if _, err := os.Stat(dst); errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(dst, snap.Raw, 0o644); err != nil {
			return "", err
		}
	} else if err != nil {
		return "", err
	}
	return dst, nil
}
