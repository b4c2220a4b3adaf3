package billing

import (
	"fmt"
	"strings"
)

// NormalizeName makes test names comparable: trimmed, lower case, without
// periods, single spaces.
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, ".", "")
	return strings.Join(strings.Fields(name), " ")
}

// LineKey identifies a test within an invoice for audit purposes.
func LineKey(category, name string) string {
	return NormalizeName(category) + ":" + NormalizeName(name)
}

// FindByName returns the index of the first line whose normalized name
// equals name's, or -1.
func FindByName(lines []Line, name string) int {
	want := NormalizeName(name)
	for i, l := range lines {
		if NormalizeName(l.Name) == want {
			return i
		}
	}
	return -1
}

// CheckDuplicate rejects candidate when a line with the same normalized
// name already exists.
func CheckDuplicate(lines []Line, candidate string) error {
	if NormalizeName(candidate) == "" {
		return ErrEmptyTestName
	}
	if i := FindByName(lines, candidate); i >= 0 {
		return fmt.Errorf("%w: %q matches %q", ErrDuplicateTest, candidate, lines[i].Name)
	}
	return nil
}

// Append adds line after the duplicate and input checks pass.
func Append(lines []Line, line Line) ([]Line, error) {
	if err := line.Validate(); err != nil {
		return lines, err
	}
	if err := CheckDuplicate(lines, line.Name); err != nil {
		return lines, err
	}
	return append(lines, line), nil
}
