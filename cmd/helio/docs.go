package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/heliohq/helio/internal/docs"
)

// runDocs lists the document library, or with "add <file>..." copies
// files into it.
func runDocs(stdout, stderr io.Writer, configPath, outputFmt string, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(stderr, cfg)
	if err != nil {
		return err
	}
	library := docs.NewLibrary(cfg.RAG.DocsDir, cfg.RAG.AllowedExtensions, logger)

	if len(args) > 0 && args[0] == "add" {
		if len(args) < 2 {
			return errors.New("usage: helio docs add <file>...")
		}
		for _, src := range args[1:] {
			data, err := os.ReadFile(src)
			if err != nil {
				return err
			}
			rel, err := library.Save(filepath.Base(src), data)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "added %s\n", rel)
		}
		return nil
	}
	if len(args) > 0 {
		return fmt.Errorf("unknown docs command: %s", args[0])
	}

	listing, err := library.List()
	if err != nil {
		return err
	}
	if outputFmt == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(listing)
	}

	if len(listing.Files) == 0 {
		fmt.Fprintf(stdout, "No documents in %s\n", library.Root)
		return nil
	}
	for _, f := range listing.Folders {
		fmt.Fprintln(stdout, f.Name)
	}
	for _, f := range listing.Files {
		fmt.Fprintln(stdout, f.Path)
	}
	return nil
}
