package parser

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/golang/snappy"
	"github.com/rs/zerolog"
)

// Compression identifies how an input file is encoded on disk
type Compression string

const (
	CompressionNone   Compression = "none"
	CompressionGzip   Compression = "gzip"
	CompressionSnappy Compression = "snappy"
)

// maxLineSize bounds a single input line. Sensor edge lists are short rows,
// anything longer is treated as a corrupt stream.
const maxLineSize = 1 << 20

var (
	gzipMagic   = []byte{0x1f, 0x8b}
	snappyMagic = []byte("\xff\x06\x00\x00sNaPpY")
)

// Layout selects the column layout of edge records
type Layout int

const (
	// LayoutGraphPrefixed is "graphId source target [aux...]", the sensor dataset format
	LayoutGraphPrefixed Layout = iota
	// LayoutPlain is "source target [aux...]"
	LayoutPlain
)

// Options controls line-oriented parsing. The zero value is usable.
type Options struct {
	// CommentPrefix marks lines to skip; defaults to "#"
	CommentPrefix string
	// Layout of edge records; ignored for ground truth
	Layout Layout
	Logger zerolog.Logger
}

func (o Options) commentPrefix() string {
	if o.CommentPrefix == "" {
		return "#"
	}
	return o.CommentPrefix
}

// minTokens returns the token count a record needs and the positions of its endpoints
func (l Layout) minTokens() (n, src, dst int) {
	if l == LayoutPlain {
		return 2, 0, 1
	}
	return 3, 1, 2
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (rc *readCloser) Close() error {
	var errs []error
	for i := len(rc.closers) - 1; i >= 0; i-- {
		if err := rc.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open opens path and transparently decompresses gzip or snappy framed content,
// detected from the leading bytes rather than the file extension.
func Open(path string) (io.ReadCloser, Compression, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w: %w", path, ErrResourceUnavailable, err)
	}

	br := bufio.NewReader(f)
	head, err := br.Peek(len(snappyMagic))
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		f.Close()
		return nil, "", fmt.Errorf("open %s: %w", path, classifyReadError(err))
	}

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, "", fmt.Errorf("open %s: %w: %w", path, ErrDecode, err)
		}
		return &readCloser{Reader: zr, closers: []io.Closer{f, zr}}, CompressionGzip, nil
	case bytes.HasPrefix(head, snappyMagic):
		return &readCloser{Reader: snappy.NewReader(br), closers: []io.Closer{f}}, CompressionSnappy, nil
	default:
		return &readCloser{Reader: br, closers: []io.Closer{f}}, CompressionNone, nil
	}
}

// scanLines calls fn for every line of r with its 1-based line number.
// Lines must be valid UTF-8.
func scanLines(r io.Reader, fn func(lineNo int, line string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if !utf8.Valid(line) {
			return fmt.Errorf("line %d: %w: invalid UTF-8", lineNo, ErrDecode)
		}
		if err := fn(lineNo, strings.TrimSuffix(string(line), "\r")); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return fmt.Errorf("line %d: %w: %w", lineNo+1, ErrDecode, err)
		}
		return err
	}
	return nil
}
