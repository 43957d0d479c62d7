package rules

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseDrawNumbers parses "5+3+8" or "5,3,8" into three digits
func ParseDrawNumbers(s string) ([3]int, error) {
	var digits [3]int

	parts := strings.FieldsFunc(strings.TrimSpace(s), func(r rune) bool {
		return r == '+' || r == ','
	})
	if len(parts) != 3 {
		return digits, fmt.Errorf("%w: %q", ErrInvalidDigits, s)
	}

	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 9 {
			return digits, fmt.Errorf("%w: %q", ErrInvalidDigits, s)
		}
		digits[i] = n
	}
	return digits, nil
}

// FormatDrawNumbers renders digits as "5+3+8"
func FormatDrawNumbers(digits [3]int) string {
	return fmt.Sprintf("%d+%d+%d", digits[0], digits[1], digits[2])
}

// FormatDrawResult renders digits with their sum, e.g. "5+3+8=16"
func FormatDrawResult(digits [3]int) string {
	return fmt.Sprintf("%s=%d", FormatDrawNumbers(digits), digits[0]+digits[1]+digits[2])
}

// NextIssue returns the issue after the given one, keeping any zero padding
func NextIssue(issue string) (string, error) {
	issue = strings.TrimSpace(issue)
	n, err := strconv.ParseInt(issue, 10, 64)
	if err != nil || n < 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidIssue, issue)
	}
	return fmt.Sprintf("%0*d", len(issue), n+1), nil
}

// CompareIssues orders two numeric issues, falling back to length then lexical order
func CompareIssues(a, b string) int {
	an, aerr := strconv.ParseInt(a, 10, 64)
	bn, berr := strconv.ParseInt(b, 10, 64)
	if aerr == nil && berr == nil {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	}
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
