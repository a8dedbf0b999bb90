package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/heliohq/helio/internal/defaults"
)

// runInit prepares a Helio working directory: the memory and documents
// folders plus a default config.yaml. Existing files are never
// overwritten.
func runInit(w io.Writer, dir string) error {
	fmt.Fprintf(w, "Initializing Helio workspace in %s\n", dir)

	for _, sub := range []string{"memory", filepath.Join("memory", "docs")} {
		path := filepath.Join(dir, sub)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		fmt.Fprintf(w, "  ✓ %s/\n", path)
	}

	// The config may carry API keys.
	configPath := filepath.Join(dir, "config.yaml")
	created, err := writeIfMissing(configPath, defaults.ConfigYAML, 0o600)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(w, "  ✓ %s\n", configPath)
	} else {
		fmt.Fprintf(w, "  - %s (exists, kept)\n", configPath)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Edit config.yaml to choose a provider, then drop documents into memory/docs.")
	return nil
}

// writeIfMissing writes content to path only if the file does not
// already exist, and reports whether it wrote.
func writeIfMissing(path string, content []byte, perm os.FileMode) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.WriteFile(path, content, perm); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}
