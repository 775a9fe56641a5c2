package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Option configures Load.
type Option func(*loader)

type loader struct {
	dotenv  []string
	prefix  string
	environ map[string]string
}

// WithDotenv loads the given files into the process environment before
// parsing. Missing files are ignored. Without this option ".env" is tried.
func WithDotenv(files ...string) Option {
	return func(l *loader) {
		l.dotenv = files
	}
}

// WithPrefix prepends prefix to every env tag, for running two workers with
// different settings from one environment.
func WithPrefix(prefix string) Option {
	return func(l *loader) {
		l.prefix = prefix
	}
}

// WithEnviron parses from vars instead of the process environment and skips
// dotenv files.
func WithEnviron(vars map[string]string) Option {
	return func(l *loader) {
		l.environ = vars
	}
}

// Load parses environment variables into a new T according to its env tags.
//
//	cfg, err := config.Load[hub.Config]()
func Load[T any](opts ...Option) (T, error) {
	l := &loader{dotenv: []string{".env"}}
	for _, opt := range opts {
		opt(l)
	}

	var cfg T
	envOpts := env.Options{Prefix: l.prefix}
	if l.environ != nil {
		envOpts.Environment = l.environ
	} else if err := loadDotenv(l.dotenv); err != nil {
		return cfg, err
	}

	if err := env.ParseWithOptions(&cfg, envOpts); err != nil {
		return cfg, errors.Join(ErrParsingConfig, err)
	}
	return cfg, nil
}

// MustLoad is Load that panics on error. For use in main.
func MustLoad[T any](opts ...Option) T {
	cfg, err := Load[T](opts...)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return cfg
}

func loadDotenv(files []string) error {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return errors.Join(ErrDotenv, err)
	}
	return nil
}
