package capture

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOptionsNormalize(t *testing.T) {
	o := Options{URL: "http://127.0.0.1:8080/", OutputPath: "/tmp/x.png", Username: "me", Password: "pw"}
	require.NoError(t, o.normalize())
	require.Equal(t, "http://me:pw@127.0.0.1:8080/", o.URL)
	require.Equal(t, DefaultWidth, o.Width)
	require.Equal(t, DefaultHeight, o.Height)
	require.Equal(t, DefaultTimeout, o.Timeout)
}

func TestCaptureRejectsBadOptions(t *testing.T) {
	ctx := context.Background()
	require.Error(t, CaptureDashboardPNG(ctx, Options{OutputPath: "x.png"}))
	require.Error(t, CaptureDashboardPNG(ctx, Options{URL: "http://localhost/"}))
	require.Error(t, CaptureDashboardPNG(ctx, Options{URL: "not a url", OutputPath: "x.png"}))
}

func TestWriteFileReplacesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "preview.png")
	require.NoError(t, writeFile(path, []byte("one")))
	require.NoError(t, writeFile(path, []byte("two")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "two", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
