package printer

import (
	"fmt"

	"github.com/slok/dlsync/internal/model"
)

// FormatProgress returns a human-readable progress string.
// Examples: "3/10 (30%)", "0/0 (?)".
func FormatProgress(p model.Progress) string {
	if _, ok := p.Fraction(); !ok {
		return fmt.Sprintf("%d/%d (?)", p.Current, p.Total)
	}

	return fmt.Sprintf("%d/%d (%d%%)", p.Current, p.Total, p.Current*100/p.Total)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
