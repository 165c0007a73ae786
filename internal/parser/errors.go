package parser

import (
	"fmt"
	"strings"
)

// IntentParseError indicates no condition could be extracted from the input,
// or the result fell below the configured confidence threshold.
type IntentParseError struct {
	// Reason is a human-readable description of the failure.
	Reason string

	// AmbiguousTerms lists condition-like phrases that matched no template.
	AmbiguousTerms []string
}

// Error implements the error interface.
func (e *IntentParseError) Error() string {
	if len(e.AmbiguousTerms) > 0 {
		return fmt.Sprintf("intent parsing failed: %s (ambiguous: %s)",
			e.Reason, strings.Join(e.AmbiguousTerms, ", "))
	}
	return fmt.Sprintf("intent parsing failed: %s", e.Reason)
}
