package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/bundleplan/internal/buildconfig"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnsupportedFormat is returned for configuration files with an unknown extension
	ErrUnsupportedFormat = errors.New("unsupported configuration format")
	// ErrUnsupportedOption is returned when a JS config uses a bundler option with no equivalent
	ErrUnsupportedOption = errors.New("unsupported configuration option")
)

// Load reads a raw configuration from path. The returned base directory is
// the directory holding the file, so relative paths in the file resolve
// against the file's own location rather than the working directory.
func Load(path string) (buildconfig.RawConfig, string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return buildconfig.RawConfig{}, "", fmt.Errorf("failed to resolve config path: %w", err)
	}
	baseDir := filepath.Dir(abs)

	data, err := os.ReadFile(abs)
	if err != nil {
		return buildconfig.RawConfig{}, "", fmt.Errorf("failed to read config: %w", err)
	}

	var raw buildconfig.RawConfig
	switch ext := strings.ToLower(filepath.Ext(abs)); ext {
	case ".yaml", ".yml":
		raw, err = decodeYAML(data)
	case ".json":
		raw, err = decodeJSON(data)
	case ".js", ".cjs":
		raw, err = evalJS(abs, baseDir, data)
	default:
		return buildconfig.RawConfig{}, "", fmt.Errorf("%w: %q (expected .yaml, .yml, .json, .js or .cjs)", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return buildconfig.RawConfig{}, "", fmt.Errorf("failed to load %s: %w", path, err)
	}

	log.Debug().Str("path", abs).Str("baseDir", baseDir).Msg("configuration loaded")

	return raw, baseDir, nil
}

// Write stores raw at path as YAML or JSON depending on the extension.
func Write(path string, raw buildconfig.RawConfig) error {
	var (
		data []byte
		err  error
	)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err = EncodeYAML(raw)
	case ".json":
		if data, err = json.MarshalIndent(raw, "", "  "); err == nil {
			data = append(data, '\n')
		}
	default:
		return fmt.Errorf("%w: %q (expected .yaml, .yml or .json)", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// #nosec G306 - build configuration is meant to be shared and committed
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// EncodeYAML renders v as YAML with two space indentation.
func EncodeYAML(v any) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeYAML(data []byte) (buildconfig.RawConfig, error) {
	var raw buildconfig.RawConfig

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return buildconfig.RawConfig{}, err
	}
	return raw, nil
}

func decodeJSON(data []byte) (buildconfig.RawConfig, error) {
	var raw buildconfig.RawConfig

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return buildconfig.RawConfig{}, err
	}
	return raw, nil
}
