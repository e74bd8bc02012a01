package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// writeOutput encodes v as indented JSON to path, or to stdout when path is
// empty or "-".
func writeOutput(path string, v any) error {
	var w io.Writer = os.Stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
