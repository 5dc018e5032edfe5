package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Local writes uploads below a directory.
type Local struct {
	dir string
	now func() time.Time
}

// NewLocal returns a Local archiver rooted at dir.
func NewLocal(dir string) *Local {
	return &Local{dir: dir, now: time.Now}
}

// Archive implements Archiver. The returned location is a file path.
func (l *Local) Archive(ctx context.Context, owner, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst := filepath.Join(l.dir, filepath.FromSlash(ObjectName(owner, name, l.now(), uuid.New())))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("creating archive dir: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("writing archive %s: %w", dst, err)
	}
	return dst, nil
}
