package stylectl

import (
	"fmt"
	"io"
	"strings"
)

// WriteReport prints the outfit the way the assistant presents it:
// the swatch rows, the rationale, then where the preview went.
func WriteReport(w io.Writer, r *Result) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Образ (%s), оценка %.1f\n", r.Outfit.Kind, r.Outfit.Score)
	for _, row := range r.Outfit.Rows {
		fmt.Fprintf(&b, "  %-16s %s\n", row.Label, row.Color)
	}
	if r.Outfit.Rationale != "" {
		fmt.Fprintf(&b, "\n%s\n", r.Outfit.Rationale)
	}
	if r.PreviewFile != "" {
		fmt.Fprintf(&b, "\npreview: %s\n", r.PreviewFile)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
