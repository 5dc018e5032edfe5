package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectName(t *testing.T) {
	id := uuid.MustParse("6f1c8a4e-2b7d-4c11-9a55-0e3f2d1b7c90")
	at := time.Date(2025, 3, 7, 23, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "statement.xlsx", "uploads/alice/2025/03/07/6f1c8a4e-2b7d-4c11-9a55-0e3f2d1b7c90-statement.xlsx"},
		{"strips dirs", "../../etc/passwd", "uploads/alice/2025/03/07/6f1c8a4e-2b7d-4c11-9a55-0e3f2d1b7c90-passwd"},
		{"windows path", `C:\Users\me\jan.csv`, "uploads/alice/2025/03/07/6f1c8a4e-2b7d-4c11-9a55-0e3f2d1b7c90-jan.csv"},
		{"empty", "", "uploads/alice/2025/03/07/6f1c8a4e-2b7d-4c11-9a55-0e3f2d1b7c90-upload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ObjectName("alice", tt.in, at, id))
		})
	}
}

func TestNop(t *testing.T) {
	loc, err := Nop{}.Archive(context.Background(), "a", "b.csv", []byte("x"))
	require.NoError(t, err)
	assert.Empty(t, loc)
}

func TestLocal_Archive(t *testing.T) {
	dir := t.TempDir()
	l := NewLocal(dir)
	l.now = func() time.Time { return time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC) }

	loc, err := l.Archive(context.Background(), "bob", "jan.csv", []byte("Date,Narration\n"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(loc, filepath.Join(dir, "uploads", "bob", "2025", "01", "02")))
	assert.True(t, strings.HasSuffix(loc, "-jan.csv"))

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "Date,Narration\n", string(data))
}

func TestLocal_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLocal(t.TempDir()).Archive(ctx, "bob", "jan.csv", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

type memWriter struct {
	bytes.Buffer
	closeErr error
	closed   bool
}

func (m *memWriter) Close() error {
	m.closed = true
	return m.closeErr
}

func TestGCS_Archive(t *testing.T) {
	w := &memWriter{}
	var gotObject string
	g := &GCS{
		bucket: "spend-uploads",
		now:    func() time.Time { return time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC) },
		newWriter: func(_ context.Context, object string) io.WriteCloser {
			gotObject = object
			return w
		},
	}

	loc, err := g.Archive(context.Background(), "carol", "feb.xlsx", []byte("PK"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(gotObject, "uploads/carol/2025/04/05/"))
	assert.Equal(t, "gs://spend-uploads/"+gotObject, loc)
	assert.Equal(t, "PK", w.String())
	assert.True(t, w.closed)
	assert.NoError(t, g.Close())
}

func TestGCS_FinalizeError(t *testing.T) {
	w := &memWriter{closeErr: errors.New("quota")}
	g := &GCS{
		bucket:    "b",
		now:       time.Now,
		newWriter: func(context.Context, string) io.WriteCloser { return w },
	}
	_, err := g.Archive(context.Background(), "c", "x.csv", []byte("1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "finalize upload")
}
