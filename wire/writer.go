package wire

import (
	"bufio"
	"bytes"
	"io"
	"sync"
)

// Buffer pool for building lines for unbuffered writers
var bufferPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, 256))
	},
}

func getBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

func putBuffer(buf *bytes.Buffer) {
	// large READ payloads are not worth keeping around
	if buf.Cap() > 64*1024 {
		return
	}
	buf.Reset()
	bufferPool.Put(buf)
}

// AppendResponse appends the reply line for resp, without terminator, to dst.
func AppendResponse(dst []byte, resp *Response) []byte {
	dst = append(dst, resp.Status...)
	switch resp.Status {
	case StatusOK:
		if resp.HasPayload || resp.Payload != "" {
			dst = append(dst, Space...)
			dst = append(dst, resp.Payload...)
		}
	case StatusErr:
		dst = append(dst, Space...)
		dst = append(dst, resp.Reason...)
	}
	return dst
}

// WriteResponse writes resp followed by '\n'. A *bufio.Writer is flushed so
// the reply reaches the peer before the next request is read.
func WriteResponse(w io.Writer, resp *Response) error {
	if bw, ok := w.(*bufio.Writer); ok {
		bw.Write(AppendResponse(bw.AvailableBuffer(), resp))
		bw.WriteString(LF)
		return bw.Flush()
	}

	buf := getBuffer()
	defer putBuffer(buf)

	buf.Write(AppendResponse(buf.AvailableBuffer(), resp))
	buf.WriteString(LF)
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteRequest validates and writes req followed by '\n'. Tokens that would
// change the request's shape on the wire are rejected with an
// *InvalidTokenError before anything is written.
func WriteRequest(w io.Writer, req *Request) error {
	if err := ValidateToken(string(req.Command)); err != nil {
		return err
	}
	for _, arg := range req.Args {
		if err := ValidateToken(arg); err != nil {
			return err
		}
	}

	if bw, ok := w.(*bufio.Writer); ok {
		writeRequestTo(bw, req)
		return bw.Flush()
	}

	buf := getBuffer()
	defer putBuffer(buf)

	writeRequestTo(buf, req)
	_, err := w.Write(buf.Bytes())
	return err
}

type stringWriter interface {
	WriteString(s string) (int, error)
}

func writeRequestTo(w stringWriter, req *Request) {
	w.WriteString(string(req.Command))
	for _, arg := range req.Args {
		w.WriteString(Space)
		w.WriteString(arg)
	}
	w.WriteString(LF)
}
