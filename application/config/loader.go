// Package config loads and validates permstore settings.
package config

import (
	stdErrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/reglet-dev/permstore/domain/entities"
	"github.com/reglet-dev/permstore/domain/errors"
	"github.com/reglet-dev/permstore/domain/ports"
)

// validate is a package-level singleton; validators cache struct metadata.
var validate = newValidator()

// newValidator reports fields by their YAML key.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Loader reads a config file through a ConfigParser and validates the result.
type Loader struct {
	parser   ports.ConfigParser
	readFile func(string) ([]byte, error)
	defaults []entities.ConfigOption
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithReadFile replaces os.ReadFile.
func WithReadFile(fn func(string) ([]byte, error)) LoaderOption {
	return func(l *Loader) {
		l.readFile = fn
	}
}

// WithDefaults applies opts to the default Config before the file is read.
func WithDefaults(opts ...entities.ConfigOption) LoaderOption {
	return func(l *Loader) {
		l.defaults = append(l.defaults, opts...)
	}
}

// NewLoader creates a Loader using parser.
func NewLoader(parser ports.ConfigParser, opts ...LoaderOption) *Loader {
	l := &Loader{
		parser:   parser,
		readFile: os.ReadFile,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the configuration at path. A missing file yields the defaults.
// Leading "~/" in path settings expands to $HOME.
func (l *Loader) Load(path string) (entities.Config, error) {
	cfg := entities.NewConfig(l.defaults...)

	if path != "" {
		data, err := l.readFile(path)
		switch {
		case stdErrors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, &errors.ConfigError{Err: fmt.Errorf("read %s: %w", path, err)}
		default:
			cfg, err = l.parser.Parse(data, cfg)
			if err != nil {
				return cfg, &errors.ConfigError{Err: fmt.Errorf("parse %s: %w", path, err)}
			}
		}
	}

	cfg.StorePath = expandHome(cfg.StorePath)
	cfg.KeyPath = expandHome(cfg.KeyPath)
	cfg.SealIdentityPath = expandHome(cfg.SealIdentityPath)
	cfg.WorkingDirectory = expandHome(cfg.WorkingDirectory)

	return cfg, Validate(cfg)
}

// Validate checks cfg against its validation tags. The first failing field
// is reported as a *errors.ConfigError.
func Validate(cfg entities.Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if stdErrors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &errors.ConfigError{
			Field: fe.Field(),
			Err:   fmt.Errorf("failed on '%s' rule", fe.Tag()),
		}
	}
	return &errors.ConfigError{Err: err}
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
