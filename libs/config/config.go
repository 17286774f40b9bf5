package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Loader reads settings from the process environment, optionally layered over a
// dotenv-style file. Environment variables always win over the file.
type Loader struct {
	v *viper.Viper
}

// NewLoader returns a Loader. An empty file or a missing file is not an error;
// only a file that exists but cannot be parsed is reported.
func NewLoader(file string) (*Loader, error) {
	v := viper.New()
	v.AutomaticEnv()
	if file = strings.TrimSpace(file); file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", file, err)
			}
		}
	}
	return &Loader{v: v}, nil
}

func (l *Loader) String(key, fallback string) string {
	v := strings.TrimSpace(l.v.GetString(key))
	if v == "" {
		return fallback
	}
	return v
}

func (l *Loader) RequiredString(key string) (string, error) {
	v := strings.TrimSpace(l.v.GetString(key))
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

func (l *Loader) Int(key string, fallback int) int {
	l.v.SetDefault(key, fallback)
	return l.v.GetInt(key)
}

func (l *Loader) Bool(key string, fallback bool) bool {
	l.v.SetDefault(key, fallback)
	return l.v.GetBool(key)
}

// Duration accepts Go duration strings ("2s", "1m30s"). Unparseable or
// non-positive values fall back.
func (l *Loader) Duration(key string, fallback time.Duration) time.Duration {
	l.v.SetDefault(key, fallback)
	d := l.v.GetDuration(key)
	if d <= 0 {
		return fallback
	}
	return d
}

// StringSlice splits a comma separated value, dropping blanks.
func (l *Loader) StringSlice(key string, fallback []string) []string {
	raw := l.String(key, "")
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func (l *Loader) Port(key, fallback string) (string, error) {
	v := l.String(key, fallback)
	p, err := strconv.Atoi(v)
	if err != nil || p < 1 || p > 65535 {
		return "", fmt.Errorf("%s must be a valid TCP port (got %q)", key, v)
	}
	return v, nil
}
