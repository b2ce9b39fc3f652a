package wire

// CmdType is a request command keyword.
type CmdType string

// StatusType is the first token of a response line.
type StatusType string

// Protocol delimiters
const (
	// LF terminates every request and response line.
	LF = "\n"

	// Space separates tokens.
	Space = " "
)

// DefaultPort is the TCP port the service listens on.
const DefaultPort = 4000

// Commands
const (
	// CmdAlloc creates a named region.
	//
	// Wire format: ALLOC <name> <size>\n
	//
	// Replies: OK, ERR already_exists, ERR nomem
	CmdAlloc CmdType = "ALLOC"

	// CmdWrite decodes a base64 payload into a region at an offset.
	//
	// Wire format: WRITE <name> <offset> <base64>\n
	//
	// Replies: OK, ERR not_found, ERR bad_base64, ERR out_of_bounds
	CmdWrite CmdType = "WRITE"

	// CmdRead returns a byte range of a region, base64 encoded.
	//
	// Wire format: READ <name> <offset> <length>\n
	//
	// Replies: OK <base64>, ERR not_found, ERR out_of_bounds
	CmdRead CmdType = "READ"

	// CmdFree removes a region.
	//
	// Wire format: FREE <name>\n
	//
	// Replies: OK, ERR not_found
	CmdFree CmdType = "FREE"

	// CmdList enumerates live regions, newest first, as "name:size;" pairs.
	//
	// Wire format: LIST\n
	//
	// Replies: OK <pairs>
	CmdList CmdType = "LIST"

	// CmdExit ends the session after the reply.
	//
	// Wire format: EXIT\n
	//
	// Replies: OK bye
	CmdExit CmdType = "EXIT"
)

// Arity returns the number of tokens expected after the command keyword.
// ok is false for unknown commands.
func (c CmdType) Arity() (n int, ok bool) {
	switch c {
	case CmdAlloc:
		return 2, true
	case CmdWrite, CmdRead:
		return 3, true
	case CmdFree:
		return 1, true
	case CmdList, CmdExit:
		return 0, true
	}
	return 0, false
}

// Response statuses
const (
	StatusOK  StatusType = "OK"
	StatusErr StatusType = "ERR"
)

// Error reasons carried by ERR replies
const (
	ReasonAlreadyExists  = "already_exists"
	ReasonNoMemory       = "nomem"
	ReasonNotFound       = "not_found"
	ReasonBadBase64      = "bad_base64"
	ReasonOutOfBounds    = "out_of_bounds"
	ReasonUnknownCommand = "unknown_command"

	// ReasonEmpty is returned for a line without any token.
	ReasonEmpty = "empty"

	// UsageSuffix follows the command keyword in argument-count errors.
	UsageSuffix = "usage"
)

// PayloadBye is the payload of the EXIT acknowledgement.
const PayloadBye = "bye"

// ListPairSeparator and ListSizeSeparator shape the LIST payload.
const (
	ListPairSeparator = ";"
	ListSizeSeparator = ":"
)
