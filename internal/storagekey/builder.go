// Package storagekey derives object keys from an advertised filename and a strftime pattern.
package storagekey

import (
	"fmt"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"

	"github.com/JakeFAU/webscraper/internal/workflow"
)

// Extension is appended to every key.
const Extension = ".csv"

// Conversions accepted after '%'. %t and %n are left out since they would put control
// characters in an object key.
const conversions = "AaBbhCcDdeFfGgHIjklLMmNPpQRrSsTUuVvWwXxYyZz+%"

// Builder implements workflow.KeyBuilder.
type Builder struct{}

// New returns a Builder.
func New() Builder {
	return Builder{}
}

// Build returns prefix + strftime(now, pattern) + ".csv". The pattern is checked before
// formatting.
func (Builder) Build(prefix, pattern string, now time.Time) (string, error) {
	if err := ValidatePattern(pattern); err != nil {
		return "", err
	}
	return prefix + strftime.Format(pattern, now) + Extension, nil
}

// ValidatePattern rejects a dangling '%' and any conversion the formatter would echo
// verbatim instead of expanding.
func ValidatePattern(pattern string) error {
	for i := 0; i < len(pattern); i++ {
		if pattern[i] != '%' {
			continue
		}
		start := i
		i++
		if i < len(pattern) && (pattern[i] == '-' || pattern[i] == ':') {
			i++
		}
		modifier := byte(0)
		if i < len(pattern) && (pattern[i] == 'E' || pattern[i] == 'O') {
			modifier = pattern[i]
			i++
		}
		if i >= len(pattern) {
			return fmt.Errorf("%w: dangling %q in %q", workflow.ErrInvalidPattern, pattern[start:], pattern)
		}
		spec := pattern[i]
		if !strings.ContainsRune(conversions, rune(spec)) || !modifierAllows(modifier, spec) {
			return fmt.Errorf("%w: unsupported conversion %q in %q",
				workflow.ErrInvalidPattern, pattern[start:i+1], pattern)
		}
	}
	return nil
}

func modifierAllows(modifier, spec byte) bool {
	switch modifier {
	case 'E':
		return strings.IndexByte("cCxXyY", spec) >= 0
	case 'O':
		return strings.IndexByte("deHImMSuUVwWy", spec) >= 0
	default:
		return true
	}
}
