package wire

import (
	"strings"
)

// Request is a parsed or to-be-written request line.
type Request struct {
	Command CmdType

	// Args are the tokens following the command, in order.
	Args []string
}

// NewRequest creates a request from a command and its tokens.
func NewRequest(cmd CmdType, args ...string) *Request {
	return &Request{Command: cmd, Args: args}
}

// Arg returns the i-th argument or "" when absent.
func (r *Request) Arg(i int) string {
	if i < 0 || i >= len(r.Args) {
		return ""
	}
	return r.Args[i]
}

// Tokenize splits line on single spaces, dropping the empty tokens produced
// by runs of spaces. Tabs and other whitespace are part of tokens.
func Tokenize(line string) []string {
	var tokens []string
	for len(line) > 0 {
		i := strings.IndexByte(line, ' ')
		if i < 0 {
			tokens = append(tokens, line)
			break
		}
		if i > 0 {
			tokens = append(tokens, line[:i])
		}
		line = line[i+1:]
	}
	return tokens
}

// ParseRequest tokenizes one line (without its terminator). A line without
// tokens returns ErrEmpty. The command is not validated.
func ParseRequest(line []byte) (*Request, error) {
	tokens := Tokenize(string(line))
	if len(tokens) == 0 {
		return nil, ErrEmpty
	}
	return &Request{
		Command: CmdType(tokens[0]),
		Args:    tokens[1:],
	}, nil
}

// ValidateToken checks that tok can be sent as a single request token.
func ValidateToken(tok string) error {
	if tok == "" {
		return &InvalidTokenError{Token: tok, Message: "token is empty"}
	}
	if strings.ContainsAny(tok, " \n") {
		return &InvalidTokenError{Token: tok, Message: "token contains a space or newline"}
	}
	return nil
}
