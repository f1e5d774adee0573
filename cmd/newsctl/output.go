package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// errUnknownOutput rejects unsupported --output values.
var errUnknownOutput = errors.New("unknown output format")

func isJSON() (bool, error) {
	switch outputFmt {
	case "json":
		return true, nil
	case "table", "":
		return false, nil
	}

	return false, fmt.Errorf("%w: %q", errUnknownOutput, outputFmt)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	return enc.Encode(v)
}
