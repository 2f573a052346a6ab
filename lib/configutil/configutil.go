package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// localName turns "dir/casetrack.json5" into "dir/casetrack.local.json5".
func localName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".local" + ext
}

// readInto decodes the json5 file at path into out, found is false when the file
// does not exist or is empty.
func readInto(path string, out any) (found bool, err error) {
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(contents) == 0 {
		return false, nil
	}
	err = json5.Unmarshal(contents, out)
	if err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

// ReadConfig reads the json5 file name and merges <name>.local.<ext> on top of it
// when present, fields set in the local file win. It returns os.ErrNotExist when
// neither file exists.
func ReadConfig[T any](name string) (T, error) {
	var out T
	found, err := readInto(name, &out)
	if err != nil {
		return out, err
	}

	local := localName(name)
	var override T
	foundLocal, err := readInto(local, &override)
	if err != nil {
		return out, err
	}
	if foundLocal {
		err = mergo.Merge(&out, override, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		slog.Info("merging config with local overrides", "local", local)
	}

	if !found && !foundLocal {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadRecursively is ReadConfig starting in the working directory and walking up
// to the filesystem root until a directory holds the config.
func ReadRecursively[T any](name string) (T, error) {
	if filepath.IsAbs(name) {
		return ReadConfig[T](name)
	}
	current, err := os.Getwd()
	if err != nil {
		var zero T
		return zero, err
	}
	return ReadFrom[T](current, name)
}

// ReadFrom is ReadRecursively starting in dir.
func ReadFrom[T any](dir, name string) (T, error) {
	current, err := filepath.Abs(dir)
	if err != nil {
		var zero T
		return zero, err
	}
	for {
		config, err := ReadConfig[T](filepath.Join(current, name))
		if err == nil || !os.IsNotExist(err) {
			return config, err
		}
		parent := filepath.Dir(current)
		if parent == current {
			var zero T
			return zero, os.ErrNotExist
		}
		current = parent
	}
}
