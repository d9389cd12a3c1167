package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"silq/lib/fault"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Load reads the file at path. The format follows the extension:
// .yaml and .yml are YAML, .toml is TOML.
// Relative certificate paths are resolved against the file's directory.
func Load(path string) (File, error) {
	var f File

	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return f, fault.Wrap(fault.Configuration, err, "failed to read config file")
	}

	switch ext := strings.ToLower(filepath.Ext(cleanPath)); ext {
	case ".yaml", ".yml":
		f, err = ParseYAML(data)
	case ".toml":
		f, err = ParseTOML(data)
	default:
		return f, fault.Newf(fault.Configuration, "unknown config format %q", ext)
	}
	if err != nil {
		return f, err
	}

	f.resolvePaths(filepath.Dir(cleanPath))
	return f, nil
}

// ParseYAML decodes data, rejecting unknown keys.
func ParseYAML(data []byte) (File, error) {
	var f File

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fault.Wrap(fault.Configuration, err, "failed to parse yaml config")
	}

	return f, f.Validate()
}

// ParseTOML decodes data, rejecting unknown keys.
func ParseTOML(data []byte) (File, error) {
	var f File

	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return File{}, fault.Wrap(fault.Configuration, err, "failed to parse toml config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return File{}, fault.Newf(fault.Configuration, "unknown toml key %q", undecoded[0].String())
	}

	return f, f.Validate()
}

func (f *File) resolvePaths(dir string) {
	resolve := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}

	if f.ClientAuth != nil {
		resolve(&f.ClientAuth.CertFile)
		resolve(&f.ClientAuth.KeyFile)
	}
	if f.ServerAuth != nil {
		resolve(&f.ServerAuth.CAFile)
	}
}
