package marionette

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"
)

// MaxFrameSize bounds the payload length accepted by ReadFrame.
const MaxFrameSize = 64 << 20

// FrameError reports a malformed frame. The stream cannot be trusted after one.
type FrameError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("marionette: invalid frame: %s: %v", e.Reason, e.Err)
	}
	return "marionette: invalid frame: " + e.Reason
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// maxLengthDigits bounds the decimal length prefix.
const maxLengthDigits = 20

// ReadFrame reads one "length:payload" frame and returns the payload.
// The payload must be valid UTF-8.
func ReadFrame(r *bufio.Reader) (string, error) {
	n, err := readLength(r)
	if err != nil {
		return "", err
	}
	if n > MaxFrameSize {
		return "", &FrameError{Reason: fmt.Sprintf("length %d exceeds limit", n)}
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return "", &FrameError{Reason: "truncated payload", Err: io.ErrUnexpectedEOF}
		}
		return "", err
	}
	if !utf8.Valid(buf) {
		return "", &FrameError{Reason: "payload is not valid UTF-8"}
	}
	return string(buf), nil
}

// readLength reads the decimal length prefix and its ":" delimiter. At most
// maxLengthDigits digits are consumed before giving up.
func readLength(r *bufio.Reader) (uint64, error) {
	var digits []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(digits) == 0 {
					return 0, io.EOF
				}
				return 0, &FrameError{Reason: "missing length delimiter", Err: io.ErrUnexpectedEOF}
			}
			return 0, err
		}
		if b == ':' {
			break
		}
		if b < '0' || b > '9' {
			return 0, &FrameError{Reason: fmt.Sprintf("bad length %q", append(digits, b))}
		}
		if len(digits) == maxLengthDigits {
			return 0, &FrameError{Reason: fmt.Sprintf("length prefix longer than %d digits", maxLengthDigits)}
		}
		digits = append(digits, b)
	}

	if len(digits) == 0 {
		return 0, &FrameError{Reason: "empty length prefix"}
	}
	n, err := strconv.ParseUint(string(digits), 10, 64)
	if err != nil {
		return 0, &FrameError{Reason: fmt.Sprintf("bad length %q", digits), Err: err}
	}
	return n, nil
}

// WriteFrame writes data prefixed with its byte length and a colon.
func WriteFrame(w io.Writer, data string) error {
	frame := make([]byte, 0, len(data)+21)
	frame = strconv.AppendInt(frame, int64(len(data)), 10)
	frame = append(frame, ':')
	frame = append(frame, data...)
	_, err := w.Write(frame)
	return err
}
