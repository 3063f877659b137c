/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/

// Package loader hands encoded pipeline images to the packet engine.
package loader

import (
	"context"
	"fmt"
	"regexp"
)

// Loader installs an image for a pipeline on a capture group.
type Loader interface {
	Load(ctx context.Context, name string, group int, image []byte) error
}

// Unloader removes a previously loaded pipeline.
type Unloader interface {
	Unload(ctx context.Context, name string) error
}

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// ValidateName rejects pipeline names that are unsafe as file names or keys.
func ValidateName(name string) error {
	if !validName.MatchString(name) {
		return fmt.Errorf("invalid pipeline name %q", name)
	}
	return nil
}

// Discard accepts every image and keeps nothing.
type Discard struct{}

func (Discard) Load(ctx context.Context, name string, _ int, _ []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return ValidateName(name)
}

type Config struct {
	Directory string      `mapstructure:"directory"`
	Redis     RedisConfig `mapstructure:"redis"`
}

// New returns the loader selected by cfg. Redis wins over a directory; with
// neither configured images are discarded.
func New(cfg *Config) (Loader, error) {
	switch {
	case cfg == nil:
		return Discard{}, nil
	case cfg.Redis.Address != "":
		return NewRedis(&cfg.Redis)
	case cfg.Directory != "":
		return NewDirectory(cfg.Directory)
	default:
		return Discard{}, nil
	}
}

// Name returns a short label for l used in logs and audit records.
func Name(l Loader) string {
	switch l.(type) {
	case *Redis:
		return "redis"
	case *Directory:
		return "directory"
	case Discard, *Discard:
		return "discard"
	default:
		return fmt.Sprintf("%T", l)
	}
}
