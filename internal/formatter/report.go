package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/levelschema/internal/schema"
)

// VerifyResult is what the report formatter prints: the structural report and
// the number of rows found in max_id (-1 when it could not be counted).
type VerifyResult struct {
	Report    schema.Report
	MaxIDRows int64
}

// FormatReport writes a verification result as plain text.
func FormatReport(w io.Writer, r VerifyResult) error {
	var b strings.Builder

	if r.Report.OK() {
		b.WriteString("OK: levels and max_id match the expected layout\n")
	} else {
		fmt.Fprintf(&b, "FAILED: %d problem(s)\n", len(r.Report.Problems))
		for _, p := range r.Report.Problems {
			fmt.Fprintf(&b, "  - %s\n", p)
		}
	}

	if r.MaxIDRows >= 0 {
		fmt.Fprintf(&b, "max_id rows: %d\n", r.MaxIDRows)
	}

	if len(r.Report.Warnings) > 0 {
		b.WriteString("WARNINGS:\n")
		for _, warn := range r.Report.Warnings {
			fmt.Fprintf(&b, "  - %s\n", warn)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
