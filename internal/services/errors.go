package services

import (
	"sort"
	"strings"

	"github.com/clinova/medbook/internal/validation"
)

// ValidationError carries field-level violations back to the handler layer.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Violations))
	for f, code := range e.Violations {
		fields = append(fields, f+": "+code)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}
