// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package calc

import (
	"errors"
	"fmt"
	"strconv"

	"nickandperla.net/hexproc/internal/scanner"
)

// ParseNumber parses the numeric literal at the start of s and returns its
// value and length. Decimal literals may carry a fraction and an exponent;
// hex literals start with 0x and may carry a fraction and a binary exponent.
// Out-of-range literals become ±Inf or 0 as the IEEE rounding dictates.
func ParseNumber(s string) (float64, int, error) {
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') &&
		(scanner.IsHexDigit(s[2]) || s[2] == '.' && len(s) > 3 && scanner.IsHexDigit(s[3])) {
		return parseHex(s)
	}

	n := digits(s, 0, scanner.IsDigit)
	if n == 0 {
		return 0, 0, fmt.Errorf("%w: expected a number", ErrMalformed)
	}
	if n < len(s) && s[n] == '.' {
		n = digits(s, n+1, scanner.IsDigit)
	}
	n = exponent(s, n, 'e', 'E')
	return parseFloat(s[:n], s[:n], n)
}

func parseHex(s string) (float64, int, error) {
	n := digits(s, 2, scanner.IsHexDigit)
	if n < len(s) && s[n] == '.' {
		n = digits(s, n+1, scanner.IsHexDigit)
	}
	end := exponent(s, n, 'p', 'P')
	text := s[:end]
	if end == n {
		// strconv wants a binary exponent on every hex literal
		text += "p0"
	}
	return parseFloat(text, s[:end], end)
}

func parseFloat(text, literal string, n int) (float64, int, error) {
	v, err := strconv.ParseFloat(text, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, n, fmt.Errorf("%w: bad number %q", ErrMalformed, literal)
	}
	return v, n, nil
}

// digits advances i past characters accepted by ok.
func digits(s string, i int, ok func(byte) bool) int {
	for i < len(s) && ok(s[i]) {
		i++
	}
	return i
}

// exponent advances i past an exponent introduced by lower or upper,
// provided at least one digit follows.
func exponent(s string, i int, lower, upper byte) int {
	if i >= len(s) || s[i] != lower && s[i] != upper {
		return i
	}
	j := i + 1
	if j < len(s) && (s[j] == '+' || s[j] == '-') {
		j++
	}
	end := digits(s, j, scanner.IsDigit)
	if end == j {
		return i
	}
	return end
}
