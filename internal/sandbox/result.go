package sandbox

import "encoding/base64"

// Record is the transport shape of a Result: what every caller-facing
// surface (HTTP, WebSocket, MCP, CLI JSON) sends back.
type Record struct {
	Success   bool              `json:"success"`
	Output    string            `json:"output"`
	Plot      string            `json:"plot,omitempty"` // base64-encoded PNG
	Variables map[string]string `json:"variables"`
	Error     string            `json:"error,omitempty"`
	Traceback string            `json:"traceback,omitempty"`
}

// Encode maps a Result onto the transport record. Pure formatting: the only
// logic is the binary-to-text encoding of the rendered image.
func Encode(r *Result) Record {
	rec := Record{
		Success:   r.Success,
		Output:    r.Output,
		Variables: r.Bindings,
	}
	if rec.Variables == nil {
		rec.Variables = map[string]string{}
	}
	if len(r.Image) > 0 {
		rec.Plot = base64.StdEncoding.EncodeToString(r.Image)
	}
	if !r.Success {
		rec.Error = r.ErrMessage
		if r.ErrKind != "" {
			rec.Error = r.ErrKind + ": " + r.ErrMessage
		}
		rec.Traceback = r.Traceback
	}
	return rec
}
