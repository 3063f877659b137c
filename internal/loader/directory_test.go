/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadWritesImage(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDirectory(filepath.Join(dir, "images"))
	require.NoError(t, err)

	require.NoError(t, d.Load(context.Background(), "web", 1, []byte("first")))
	require.NoError(t, d.Load(context.Background(), "web", 1, []byte("second")))

	data, err := os.ReadFile(filepath.Join(dir, "images", "web.pfq"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Join(dir, "images"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")

	info, err := os.Stat(filepath.Join(dir, "images", "web.pfq"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func loadRejectsInvalidName(t *testing.T) {
	d, err := NewDirectory(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "../escape", "a/b", ".hidden"} {
		assert.Error(t, d.Load(context.Background(), name, 0, nil), name)
	}
}

func loadFailsOnCanceledContext(t *testing.T) {
	d, err := NewDirectory(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, d.Load(ctx, "web", 0, nil), context.Canceled)
}

func unloadRemovesImage(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDirectory(dir)
	require.NoError(t, err)

	require.NoError(t, d.Load(context.Background(), "web", 1, []byte("image")))
	require.NoError(t, d.Unload(context.Background(), "web"))
	assert.NoFileExists(t, filepath.Join(dir, "web.pfq"))

	assert.NoError(t, d.Unload(context.Background(), "web"), "unloading twice is fine")
}

func TestDirectory(t *testing.T) {
	t.Run("Directory.Load writes image", loadWritesImage)
	t.Run("Directory.Load rejects invalid name", loadRejectsInvalidName)
	t.Run("Directory.Load fails on canceled context", loadFailsOnCanceledContext)
	t.Run("Directory.Unload removes image", unloadRemovesImage)
}

func TestNew(t *testing.T) {
	l, err := New(nil)
	require.NoError(t, err)
	assert.IsType(t, Discard{}, l)

	l, err = New(&Config{})
	require.NoError(t, err)
	assert.IsType(t, Discard{}, l)

	dir := t.TempDir()
	l, err = New(&Config{Directory: dir})
	require.NoError(t, err)
	assert.IsType(t, &Directory{}, l)

	l, err = New(&Config{Directory: dir, Redis: RedisConfig{Address: "127.0.0.1:6379"}})
	require.NoError(t, err)
	require.IsType(t, &Redis{}, l)
	assert.NoError(t, l.(*Redis).Close())
}

func TestDiscard(t *testing.T) {
	var l Loader = Discard{}
	assert.NoError(t, l.Load(context.Background(), "web", 0, []byte("x")))
	assert.Error(t, l.Load(context.Background(), "a/b", 0, nil))
}

func TestName(t *testing.T) {
	d, err := NewDirectory(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "discard", Name(Discard{}))
	assert.Equal(t, "directory", Name(d))
	assert.Equal(t, "redis", Name(&Redis{}))
}
