package storage

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// ExportMarkdown renders a run as a markdown document, embedding the plot
// as an inline data URI when present.
func ExportMarkdown(r *Run) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("# Run %s\n\n", r.ID))
	b.WriteString(fmt.Sprintf("- **Status:** %s\n", r.Status))
	if r.ErrKind != "" {
		b.WriteString(fmt.Sprintf("- **Error kind:** %s\n", r.ErrKind))
	}
	b.WriteString(fmt.Sprintf("- **Created:** %s\n", r.CreatedAt.Format("2006-01-02 15:04:05")))
	b.WriteString("\n---\n\n")

	b.WriteString("## Source\n\n```lua\n")
	b.WriteString(r.Source)
	if !strings.HasSuffix(r.Source, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("```\n\n")

	if r.Output != "" {
		b.WriteString("## Output\n\n```\n")
		b.WriteString(r.Output)
		if !strings.HasSuffix(r.Output, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("```\n\n")
	}

	if r.Error != "" {
		b.WriteString(fmt.Sprintf("## Error\n\n```\n%s\n```\n\n", r.Error))
	}

	if len(r.Plot) > 0 {
		b.WriteString("## Plot\n\n")
		b.WriteString(fmt.Sprintf("![plot](data:image/png;base64,%s)\n",
			base64.StdEncoding.EncodeToString(r.Plot)))
	}

	return b.String()
}

// ExportJSON renders a run as formatted JSON with the plot base64-encoded.
func ExportJSON(r *Run) ([]byte, error) {
	export := struct {
		*Run
		Plot string `json:"plot,omitempty"`
	}{
		Run:  r,
		Plot: base64.StdEncoding.EncodeToString(r.Plot),
	}
	if len(r.Plot) == 0 {
		export.Plot = ""
	}
	return json.MarshalIndent(export, "", "  ")
}
