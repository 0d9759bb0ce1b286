package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var ErrBlank = errors.New("must not be blank")

// ValidateText requires a non-blank value of at most limit characters.
func ValidateText(value string, limit int) error {
	trimmed := strings.TrimSpace(value)

	if trimmed == "" {
		return ErrBlank
	}

	if utf8.RuneCountInString(trimmed) > limit {
		return fmt.Errorf("too long (max %d characters)", limit)
	}

	return nil
}
