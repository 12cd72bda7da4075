// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

// Command gen-schema writes the JSON Schema files for the deck and game
// documents the client sends.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/deckhall/deckhall/internal/deck"
	"github.com/deckhall/deckhall/internal/game"
)

var generators = map[string]func() ([]byte, error){
	"deck.schema.json": deck.Schema,
	"game.schema.json": game.Schema,
}

func main() {
	outDir := pflag.StringP("out", "o", "schemas", "output directory")
	pflag.Parse()

	if err := generate(*outDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func generate(outDir string) error {
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	for name, gen := range generators {
		schema, err := gen()
		if err != nil {
			return fmt.Errorf("generating %s: %w", name, err)
		}
		outPath := filepath.Join(outDir, name)
		if err := os.WriteFile(outPath, schema, 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", outPath, err)
		}
		fmt.Printf("Generated %s\n", outPath)
	}
	return nil
}
