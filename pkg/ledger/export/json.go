package export

import (
	"context"
	"encoding/json"
	"io"
)

// JSONExporter writes an audit bundle as a single JSON document.
type JSONExporter struct {
	// Pretty enables indentation for human review.
	Pretty bool
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes the bundle to w.
func (e *JSONExporter) Export(ctx context.Context, b *Bundle, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	records := len(b.Verdicts) + len(b.Violations) + len(b.Executions)

	var data []byte
	var err error
	if e.Pretty {
		data, err = json.MarshalIndent(b, "", "  ")
	} else {
		data, err = json.Marshal(b)
	}
	if err != nil {
		return &Error{Format: "json", Records: records, Err: err}
	}

	if _, err := w.Write(data); err != nil {
		return &Error{Format: "json", Records: records, Err: err}
	}
	return nil
}
