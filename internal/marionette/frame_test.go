package marionette

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"
	"testing"
)

func TestWriteFrame_PrefixesByteLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want string
	}{
		{"empty", "", "0:"},
		{"ascii", "hello", "5:hello"},
		{"multibyte", "é", "2:é"},
		{"json", `[0,1,"getTitle",{}]`, `19:[0,1,"getTitle",{}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			if err := WriteFrame(&buf, tt.data); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, buf.String())
			}
		})
	}
}

func TestReadFrame_RoundTrip(t *testing.T) {
	t.Parallel()

	payloads := []string{"", "a", `{"marionetteProtocol":3}`, "日本語", strings.Repeat("x", 70000)}

	var buf bytes.Buffer
	for _, p := range payloads {
		if err := WriteFrame(&buf, p); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	r := bufio.NewReader(&buf)
	for i, want := range payloads {
		got, err := ReadFrame(r)
		if err != nil {
			t.Fatalf("frame %d: unexpected error: %v", i, err)
		}
		if got != want {
			t.Errorf("frame %d: expected %d bytes, got %d", i, len(want), len(got))
		}
	}

	if _, err := ReadFrame(r); err != io.EOF {
		t.Errorf("expected io.EOF after last frame, got %v", err)
	}
}

func TestReadFrame_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		unexpEOF  bool
		wantInErr string
	}{
		{"no delimiter", "12", true, "missing length delimiter"},
		{"empty prefix", ":abc", false, "empty length prefix"},
		{"non numeric", "x1:abc", false, "bad length"},
		{"negative", "-1:abc", false, "bad length"},
		{"truncated", "5:abc", true, "truncated payload"},
		{"too large", strconv.Itoa(MaxFrameSize+1) + ":", false, "exceeds limit"},
		{"too many digits", strings.Repeat("1", 21) + ":", false, "longer than 20 digits"},
		{"overflow", strings.Repeat("9", 20) + ":", false, "bad length"},
		{"digits then garbage", "12a:abc", false, `bad length "12a"`},
		{"space before delimiter", "3 :abc", false, "bad length"},
		{"invalid utf8", "1:\xff", false, "not valid UTF-8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadFrame(bufio.NewReader(strings.NewReader(tt.input)))
			var frameErr *FrameError
			if !errors.As(err, &frameErr) {
				t.Fatalf("expected *FrameError, got %T (%v)", err, err)
			}
			if !strings.Contains(err.Error(), tt.wantInErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantInErr, err.Error())
			}
			if got := errors.Is(err, io.ErrUnexpectedEOF); got != tt.unexpEOF {
				t.Errorf("errors.Is(err, io.ErrUnexpectedEOF) = %v, want %v", got, tt.unexpEOF)
			}
			if !IsFatal(err) {
				t.Error("expected frame errors to be fatal")
			}
		})
	}
}

// endlessDigits never produces a length delimiter.
type endlessDigits struct{}

func (endlessDigits) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = '7'
	}
	return len(p), nil
}

func TestReadFrame_UnterminatedPrefixIsBounded(t *testing.T) {
	t.Parallel()

	_, err := ReadFrame(bufio.NewReader(endlessDigits{}))
	var frameErr *FrameError
	if !errors.As(err, &frameErr) {
		t.Fatalf("expected *FrameError, got %T (%v)", err, err)
	}
	if !strings.Contains(err.Error(), "longer than 20 digits") {
		t.Errorf("unexpected error %q", err)
	}
}
