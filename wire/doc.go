// Package wire implements the line protocol spoken by heapd.
//
// Every message is a single ASCII line terminated by '\n'. There is no '\r'
// handling and, unless the caller sets a limit, no maximum line length.
//
// # Requests
//
// A request is a command followed by space-separated tokens:
//
//	ALLOC <name> <size>
//	WRITE <name> <offset> <base64>
//	READ <name> <offset> <length>
//	FREE <name>
//	LIST
//	EXIT
//
// Runs of spaces collapse, so "READ  x 0   4" has four tokens. Commands are
// case-sensitive.
//
// # Responses
//
// A response is exactly one line, either OK with an optional payload or ERR
// with a reason:
//
//	OK
//	OK <payload>
//	ERR <reason>
//
// Reasons are machine-readable tokens (not_found, out_of_bounds, ...) except
// for usage errors, which read "<COMMAND> usage".
//
// # Error Handling
//
// Errors returned by the client-side helpers indicate whether the connection
// is still usable:
//
//   - ServerError: an ERR reply. The connection can be REUSED.
//   - ParseError: malformed reply line. CLOSE the connection.
//   - ConnectionError: I/O failure. The connection is already broken.
//   - InvalidTokenError: rejected before anything was written.
//
// Use ShouldCloseConnection to decide:
//
//	resp, err := wire.ReadResponse(r)
//	if err != nil {
//	    if wire.ShouldCloseConnection(err) {
//	        conn.Close()
//	    }
//	    return err
//	}
package wire
