// Package htmlsource reads captured timetable markup from files, pipes and
// HTTP bodies and normalizes it to UTF-8.
package htmlsource

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// MaxSize caps how much markup is read from a single source.
const MaxSize = 16 << 20

var (
	// ErrUnknownCharset is returned for an encoding name htmlindex does not know.
	ErrUnknownCharset = errors.New("unknown charset")

	// ErrTooLarge is returned when a source holds more than MaxSize bytes.
	ErrTooLarge = errors.New("html too large")
)

// sniffLen is how many bytes are inspected for a BOM or <meta charset>.
const sniffLen = 1024

// Decode reads r and returns its content as UTF-8.
//
// name selects the encoding explicitly ("gbk", "gb18030", "big5", ...). When
// name is empty or "auto", the encoding is taken from contentType, a BOM or a
// <meta charset> tag, falling back to UTF-8.
func Decode(r io.Reader, name, contentType string) (string, error) {
	br := bufio.NewReaderSize(io.LimitReader(r, MaxSize+1), sniffLen)

	enc, err := lookup(name)
	if err != nil {
		return "", err
	}
	if enc == nil {
		head, _ := br.Peek(sniffLen)
		enc, _, _ = charset.DetermineEncoding(head, contentType)
	}

	data, err := io.ReadAll(transform.NewReader(br, enc.NewDecoder()))
	if err != nil {
		return "", fmt.Errorf("decode html: %w", err)
	}
	if len(data) > MaxSize {
		return "", fmt.Errorf("%w: exceeds %d bytes", ErrTooLarge, MaxSize)
	}
	return string(bytes.TrimPrefix(data, []byte("\uFEFF"))), nil
}

// DecodeString is Decode for markup that is already in memory.
func DecodeString(s, name string) (string, error) {
	return Decode(strings.NewReader(s), name, "")
}

// Load reads a capture from path, or from stdin when path is "-".
func Load(path, name string) (string, error) {
	if path == "-" {
		return Decode(os.Stdin, name, "")
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open capture: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Decode(f, name, "")
}

// ValidEncoding reports whether name is accepted by Decode.
func ValidEncoding(name string) bool {
	_, err := lookup(name)
	return err == nil
}

func lookup(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" || name == "auto" {
		return nil, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrUnknownCharset, name, err)
	}
	return enc, nil
}
