package wire

import (
	"errors"
	"math"
	"strconv"
)

var errNotDecimal = errors.New("not an unsigned decimal integer")

// ParseUint parses an unsigned decimal token. Signs, whitespace and
// overflowing values are rejected with a *NumberError.
func ParseUint(tok string) (uint64, error) {
	if tok == "" {
		return 0, &NumberError{Token: tok, Err: errNotDecimal}
	}
	for i := 0; i < len(tok); i++ {
		if tok[i] < '0' || tok[i] > '9' {
			return 0, &NumberError{Token: tok, Err: errNotDecimal}
		}
	}
	n, err := strconv.ParseUint(tok, 10, 64)
	if err != nil {
		return 0, &NumberError{Token: tok, Err: err}
	}
	return n, nil
}

// ParseUintLenient converts tok the way C strtoull(tok, NULL, 10) does:
// leading whitespace is skipped, an optional sign is honoured (a minus
// negates modulo 2^64), parsing stops at the first non-digit, a token with no
// digits yields 0, and overflow saturates at math.MaxUint64.
func ParseUintLenient(tok string) uint64 {
	i := 0
	for i < len(tok) && isCSpace(tok[i]) {
		i++
	}

	neg := false
	if i < len(tok) && (tok[i] == '+' || tok[i] == '-') {
		neg = tok[i] == '-'
		i++
	}

	var n uint64
	overflow := false
	for ; i < len(tok) && tok[i] >= '0' && tok[i] <= '9'; i++ {
		d := uint64(tok[i] - '0')
		if n > (math.MaxUint64-d)/10 {
			overflow = true
			continue
		}
		n = n*10 + d
	}

	if overflow {
		return math.MaxUint64
	}
	if neg {
		return -n
	}
	return n
}

func isCSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\v' || c == '\f' || c == '\r'
}
