/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Extension of image files written by Directory.
const Extension = ".pfq"

// Directory stores every image as <dir>/<name>.pfq.
type Directory struct {
	Path string
}

func NewDirectory(path string) (*Directory, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	return &Directory{Path: path}, nil
}

func (d *Directory) file(name string) string {
	return filepath.Join(d.Path, name+Extension)
}

// Load replaces the image of name atomically: readers see either the old or
// the new image, never a partial one.
func (d *Directory) Load(ctx context.Context, name string, group int, image []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateName(name); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(d.Path, "."+name+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary image: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(image); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write image: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close image: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to set image mode: %w", err)
	}
	if err := os.Rename(tmp.Name(), d.file(name)); err != nil {
		return fmt.Errorf("failed to install image: %w", err)
	}

	slog.Debug("Installed pipeline image.", "name", name, "group", group, "path", d.file(name), "size", len(image))
	return nil
}

func (d *Directory) Unload(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateName(name); err != nil {
		return err
	}

	if err := os.Remove(d.file(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove image: %w", err)
	}
	return nil
}
