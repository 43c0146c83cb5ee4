package main

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect_DirectoryAndZip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.fit"), []byte("aaaa"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "huge.FIT"), make([]byte, 64), 0o644))

	zipPath := filepath.Join(dir, "export.zip")
	zf, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(zf)
	for name, body := range map[string]string{"activities/b.fit": "bb", "activities/readme.md": "x"} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, zf.Close())

	files, err := collect(dir, 16)
	require.NoError(t, err)

	got := map[string]string{}
	for _, f := range files {
		got[f.Name] = string(f.Data)
	}
	assert.Equal(t, map[string]string{"a.fit": "aaaa", "b.fit": "bb"}, got)
}

func TestCollect_MissingPath(t *testing.T) {
	_, err := collect(filepath.Join(t.TempDir(), "nope"), 16)
	assert.Error(t, err)
}
