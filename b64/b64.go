// Package b64 implements the base64 transcoding used by WRITE and READ
// payloads.
//
// Encoding always uses the standard alphabet with '=' padding and no line
// wrapping. Decoding comes in two policies:
//
//   - Strict: the standard contract. Input length must be a multiple of 4,
//     every character must be in the alphabet, and '=' may appear only in the
//     last one or two positions of the final group.
//   - Legacy: the behaviour of the C heapd server, kept for clients that
//     depend on it. '=' is rejected everywhere, while an unknown character in
//     the third or fourth position of a group is accepted and drops the
//     corresponding output byte.
//
// Both policies fail wholesale: a decode error never comes with partial output.
package b64

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
)

const (
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	padChar  = '='
	invalid  = 0xFF
)

// ErrLength is returned when the input length is not a multiple of 4.
var ErrLength = errors.New("b64: input length is not a multiple of 4")

// CorruptInputError reports the byte offset of the first illegal character.
type CorruptInputError int64

func (e CorruptInputError) Error() string {
	return "b64: illegal data at input byte " + strconv.FormatInt(int64(e), 10)
}

// Policy selects the decode validation rules.
type Policy int

const (
	// Strict rejects characters outside the alphabet and accepts valid padding.
	Strict Policy = iota
	// Legacy reproduces the C server bit-for-bit.
	Legacy
)

func (p Policy) String() string {
	switch p {
	case Strict:
		return "strict"
	case Legacy:
		return "legacy"
	default:
		return "Policy(" + strconv.Itoa(int(p)) + ")"
	}
}

// ParsePolicy parses the textual form produced by Policy.String.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "strict", "":
		return Strict, nil
	case "legacy":
		return Legacy, nil
	}
	return Strict, fmt.Errorf("b64: unknown policy %q", s)
}

var decodeMap = func() (m [256]byte) {
	for i := range m {
		m[i] = invalid
	}
	for i := 0; i < len(alphabet); i++ {
		m[alphabet[i]] = byte(i)
	}
	return m
}()

// EncodedLen returns the length of the encoding of n bytes.
func EncodedLen(n int) int {
	return base64.StdEncoding.EncodedLen(n)
}

// Encode returns the padded standard encoding of src.
func Encode(src []byte) string {
	return base64.StdEncoding.EncodeToString(src)
}

// AppendEncode appends the encoding of src to dst.
func AppendEncode(dst, src []byte) []byte {
	return base64.StdEncoding.AppendEncode(dst, src)
}

// Decode decodes s under policy p.
func Decode(s string, p Policy) ([]byte, error) {
	if len(s)%4 != 0 {
		return nil, ErrLength
	}
	if p == Legacy {
		return decodeLegacy(s)
	}
	return decodeStrict(s)
}

func decodeStrict(s string) ([]byte, error) {
	out := make([]byte, 0, len(s)/4*3)
	for i := 0; i < len(s); i += 4 {
		last := i+4 == len(s)

		a, b := decodeMap[s[i]], decodeMap[s[i+1]]
		if a == invalid {
			return nil, CorruptInputError(i)
		}
		if b == invalid {
			return nil, CorruptInputError(i + 1)
		}

		if s[i+2] == padChar {
			if !last {
				return nil, CorruptInputError(i + 2)
			}
			if s[i+3] != padChar {
				return nil, CorruptInputError(i + 3)
			}
			out = append(out, a<<2|b>>4)
			continue
		}
		c := decodeMap[s[i+2]]
		if c == invalid {
			return nil, CorruptInputError(i + 2)
		}

		if s[i+3] == padChar {
			if !last {
				return nil, CorruptInputError(i + 3)
			}
			out = append(out, a<<2|b>>4, b<<4|c>>2)
			continue
		}
		d := decodeMap[s[i+3]]
		if d == invalid {
			return nil, CorruptInputError(i + 3)
		}

		out = append(out, a<<2|b>>4, b<<4|c>>2, c<<6|d)
	}
	return out, nil
}

// decodeLegacy mirrors the C server decoder: positions 0 and 1 must be in
// the alphabet, '=' anywhere is an error, and an unknown character in
// positions 2 or 3 contributes zero bits and suppresses its output byte.
func decodeLegacy(s string) ([]byte, error) {
	out := make([]byte, 0, len(s)/4*3)
	for i := 0; i < len(s); i += 4 {
		a, b := decodeMap[s[i]], decodeMap[s[i+1]]
		if a == invalid {
			return nil, CorruptInputError(i)
		}
		if b == invalid {
			return nil, CorruptInputError(i + 1)
		}
		if s[i+2] == padChar {
			return nil, CorruptInputError(i + 2)
		}
		if s[i+3] == padChar {
			return nil, CorruptInputError(i + 3)
		}

		c, d := decodeMap[s[i+2]], decodeMap[s[i+3]]
		triple := uint32(a)<<18 | uint32(b)<<12
		if c != invalid {
			triple |= uint32(c) << 6
		}
		if d != invalid {
			triple |= uint32(d)
		}

		out = append(out, byte(triple>>16))
		if c != invalid {
			out = append(out, byte(triple>>8))
		}
		if d != invalid {
			out = append(out, byte(triple))
		}
	}
	return out, nil
}
