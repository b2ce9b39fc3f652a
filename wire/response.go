package wire

import (
	"strconv"
	"strings"
)

// Response is a single reply line.
type Response struct {
	Status StatusType

	// Payload follows "OK ". HasPayload distinguishes "OK" from "OK " with an
	// empty payload, which LIST and READ produce on an empty result.
	Payload    string
	HasPayload bool

	// Reason follows "ERR ". Usage errors carry a space ("ALLOC usage").
	Reason string
}

// NewOK returns a bare OK reply.
func NewOK() *Response {
	return &Response{Status: StatusOK}
}

// NewOKPayload returns "OK <payload>". The separator is written even when
// payload is empty.
func NewOKPayload(payload string) *Response {
	return &Response{Status: StatusOK, Payload: payload, HasPayload: true}
}

// NewErr returns "ERR <reason>".
func NewErr(reason string) *Response {
	return &Response{Status: StatusErr, Reason: reason}
}

// NewUsage returns the argument-count error for cmd.
func NewUsage(cmd CmdType) *Response {
	return NewErr(string(cmd) + Space + UsageSuffix)
}

// IsOK reports whether the reply status is OK.
func (r *Response) IsOK() bool {
	return r.Status == StatusOK
}

// Err returns a *ServerError for ERR replies and nil otherwise.
func (r *Response) Err() error {
	if r.Status == StatusErr {
		return &ServerError{Reason: r.Reason}
	}
	return nil
}

// String returns the reply line without its terminator.
func (r *Response) String() string {
	return string(AppendResponse(nil, r))
}

// ParseResponse parses one reply line (without its terminator).
func ParseResponse(line []byte) (*Response, error) {
	if len(line) == 0 {
		return nil, &ParseError{Message: "empty response line"}
	}

	status, rest, hasRest := strings.Cut(string(line), Space)
	switch StatusType(status) {
	case StatusOK:
		return &Response{Status: StatusOK, Payload: rest, HasPayload: hasRest}, nil
	case StatusErr:
		if rest == "" {
			return nil, &ParseError{Message: "ERR reply without reason"}
		}
		return &Response{Status: StatusErr, Reason: rest}, nil
	}
	if len(status) > 32 {
		status = status[:32] + "..."
	}
	return nil, &ParseError{Message: "unknown status " + strconv.Quote(status)}
}
