package wire

import (
	"bufio"
	"io"
)

// ReadLine reads bytes up to the next '\n' and returns them without the
// terminator. The returned slice may point into r's buffer and is only valid
// until the next read.
//
// The line grows past the reader's buffer as needed. A positive limit caps
// its length and yields ErrLineTooLong, after which the stream position is
// undefined. A limit of 0 means unbounded.
//
// End of stream before a terminator returns io.EOF when nothing was read and
// io.ErrUnexpectedEOF for a partial line.
func ReadLine(r *bufio.Reader, limit int) ([]byte, error) {
	// ReadSlice avoids an allocation for lines that fit the buffer
	line, err := r.ReadSlice('\n')
	if err == nil {
		line = line[:len(line)-1]
		if limit > 0 && len(line) > limit {
			return nil, ErrLineTooLong
		}
		return line, nil
	}
	if err != bufio.ErrBufferFull {
		return nil, eofError(len(line), err)
	}

	buf := append([]byte(nil), line...)
	for {
		if limit > 0 && len(buf) > limit {
			return nil, ErrLineTooLong
		}
		line, err = r.ReadSlice('\n')
		buf = append(buf, line...)
		if err == nil {
			break
		}
		if err != bufio.ErrBufferFull {
			return nil, eofError(len(buf), err)
		}
	}

	buf = buf[:len(buf)-1]
	if limit > 0 && len(buf) > limit {
		return nil, ErrLineTooLong
	}
	return buf, nil
}

func eofError(n int, err error) error {
	if err == io.EOF && n > 0 {
		return io.ErrUnexpectedEOF
	}
	return err
}

// ReadResponse reads and parses a single reply line from r.
//
// ERR replies are returned as a Response, not as a Go error; use
// Response.Err to convert. Go errors indicate I/O failures (io.EOF when the
// server closed the session) or a *ParseError.
func ReadResponse(r *bufio.Reader) (*Response, error) {
	line, err := ReadLine(r, 0)
	if err != nil {
		return nil, err
	}
	return ParseResponse(line)
}
