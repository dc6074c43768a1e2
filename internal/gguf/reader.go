package gguf

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// reader decodes little-endian GGUF primitives and refuses to read past the
// known input size, so corrupt lengths fail before they allocate.
type reader struct {
	r    *bufio.Reader
	off  int64
	size int64
}

func newReader(rd io.Reader, size int64) *reader {
	return &reader{r: bufio.NewReader(rd), size: size}
}

// remaining reports the bytes left before the known end of input, or the
// largest count when the size is unknown.
func (r *reader) remaining() uint64 {
	if r.size <= 0 {
		return math.MaxUint64
	}
	return uint64(r.size - r.off)
}

func (r *reader) readN(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("invalid read length %d", n)
	}
	if uint64(n) > r.remaining() {
		return nil, io.ErrUnexpectedEOF
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return nil, err
	}
	r.off += int64(n)
	return buf, nil
}

type fixed interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32 | ~uint64 | ~int64 | ~float32 | ~float64 | ~bool
}

func readFixed[T fixed](r *reader) (T, error) {
	var v T
	n := binary.Size(v)
	if uint64(n) > r.remaining() {
		return v, io.ErrUnexpectedEOF
	}
	if err := binary.Read(r.r, binary.LittleEndian, &v); err != nil {
		return v, err
	}
	r.off += int64(n)
	return v, nil
}

func (r *reader) readString() (string, error) {
	n, err := readFixed[uint64](r)
	if err != nil {
		return "", err
	}
	if n > r.remaining() {
		return "", fmt.Errorf("string length too large: %d", n)
	}
	b, err := r.readN(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
