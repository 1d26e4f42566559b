package evidence

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// WriteDump serializes v (an incident's evidence payload, or a replay
// result) to w in either "json" or "yaml" format, grounded on the teacher's
// internal/output/json.go WriteJSON helper and generalized to also support
// the --dump-format=yaml debug flag on incident evidence dumps.
func WriteDump(w io.Writer, v interface{}, format string) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown dump format %q (want json or yaml)", format)
	}
}

// WriteDumpFile is WriteDump to a path, or stdout if path is "-" or empty.
func WriteDumpFile(v interface{}, path, format string) error {
	var w io.Writer = os.Stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create dump file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return WriteDump(w, v, format)
}
