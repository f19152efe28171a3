package output

import "bytes"

// PlainFormatter formats output as raw tab-separated lines with no header.
// It produces plain text output suitable for scripting and piping.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, rec := range r.Records {
		w.WriteString(rec.Name)
		w.WriteByte('\t')
		w.WriteString(string(rec.Type))
		w.WriteByte('\t')
		w.WriteString(rec.Description)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
