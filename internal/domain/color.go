package domain

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// ValidateColor accepts "#rgb" and "#rrggbb" hex colors.
func ValidateColor(s string) error {
	if _, err := colorful.Hex(s); err != nil {
		return fmt.Errorf("color %q: %w", s, ErrInvalidInput)
	}
	return nil
}
