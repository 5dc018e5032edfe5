package archive

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Archiver stores raw upload bytes and returns where they went.
type Archiver interface {
	Archive(ctx context.Context, owner, name string, data []byte) (string, error)
}

// Nop discards uploads.
type Nop struct{}

// Archive implements Archiver.
func (Nop) Archive(context.Context, string, string, []byte) (string, error) {
	return "", nil
}

// ObjectName builds uploads/<owner>/<YYYY>/<MM>/<DD>/<id>-<base name>.
func ObjectName(owner, name string, at time.Time, id uuid.UUID) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	return path.Join("uploads", owner, at.UTC().Format("2006/01/02"), fmt.Sprintf("%s-%s", id, base))
}
