// Package encoding implements the framed little-endian binary form of a
// single array: a kind byte, an int32-prefixed shape, then the backing
// data, with every variable-length section length-prefixed.
package encoding

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/datacat-io/datacat"
)

// ErrInvalidArray is returned when array bytes are malformed
var ErrInvalidArray = errors.New("invalid array data")

const maxLen = math.MaxInt32

// WriteArray encodes one array to w.
func WriteArray(w io.Writer, a *datacat.Array) error {
	if a == nil {
		return ErrInvalidArray
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(a.Kind)); err != nil {
		return fmt.Errorf("failed to encode kind: %w", err)
	}
	if err := writeIntSlice(w, a.Shape); err != nil {
		return fmt.Errorf("failed to encode shape: %w", err)
	}

	switch a.Kind {
	case datacat.Float64:
		return writeFloats(w, a.Floats)
	case datacat.Int64:
		return writeInt64s(w, a.Ints)
	case datacat.String:
		return writeStrings(w, a.Strings)
	case datacat.Bool:
		return writeBools(w, a.Bools)
	case datacat.Sparse:
		if err := writeIntSlice(w, a.Rows); err != nil {
			return fmt.Errorf("failed to encode row indices: %w", err)
		}
		if err := writeIntSlice(w, a.Cols); err != nil {
			return fmt.Errorf("failed to encode col indices: %w", err)
		}
		return writeFloats(w, a.Floats)
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidArray, a.Kind)
	}
}

// ReadArray decodes one array from r.
func ReadArray(r io.Reader) (*datacat.Array, error) {
	var kind uint8
	if err := binary.Read(r, binary.LittleEndian, &kind); err != nil {
		return nil, fmt.Errorf("failed to decode kind: %w", err)
	}
	shape, err := readIntSlice(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode shape: %w", err)
	}

	a := &datacat.Array{Kind: datacat.Kind(kind), Shape: shape}
	switch a.Kind {
	case datacat.Float64:
		a.Floats, err = readFloats(r)
	case datacat.Int64:
		a.Ints, err = readInt64s(r)
	case datacat.String:
		a.Strings, err = readStrings(r)
	case datacat.Bool:
		a.Bools, err = readBools(r)
	case datacat.Sparse:
		if a.Rows, err = readIntSlice(r); err != nil {
			return nil, fmt.Errorf("failed to decode row indices: %w", err)
		}
		if a.Cols, err = readIntSlice(r); err != nil {
			return nil, fmt.Errorf("failed to decode col indices: %w", err)
		}
		a.Floats, err = readFloats(r)
	default:
		return nil, fmt.Errorf("%w: unknown kind %d", ErrInvalidArray, kind)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func writeLen(w io.Writer, n int) error {
	if n > maxLen {
		return fmt.Errorf("%w: length %d exceeds maximum", ErrInvalidArray, n)
	}
	return binary.Write(w, binary.LittleEndian, int32(n))
}

func readLen(r io.Reader) (int, error) {
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, ErrInvalidArray
	}
	return int(n), nil
}

func writeIntSlice(w io.Writer, vals []int) error {
	if err := writeLen(w, len(vals)); err != nil {
		return err
	}
	for _, v := range vals {
		if v > maxLen || v < math.MinInt32 {
			return fmt.Errorf("%w: value %d exceeds int32", ErrInvalidArray, v)
		}
		if err := binary.Write(w, binary.LittleEndian, int32(v)); err != nil {
			return err
		}
	}
	return nil
}

func readIntSlice(r io.Reader) ([]int, error) {
	n, err := readLen(r)
	if err != nil {
		return nil, err
	}
	vals := make([]int, n)
	for i := range vals {
		var v int32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, err
		}
		vals[i] = int(v)
	}
	return vals, nil
}

func writeFloats(w io.Writer, vals []float64) error {
	if err := writeLen(w, len(vals)); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, vals)
}

func readFloats(r io.Reader) ([]float64, error) {
	n, err := readLen(r)
	if err != nil {
		return nil, err
	}
	vals := make([]float64, n)
	if err := binary.Read(r, binary.LittleEndian, vals); err != nil {
		return nil, err
	}
	return vals, nil
}

func writeInt64s(w io.Writer, vals []int64) error {
	if err := writeLen(w, len(vals)); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, vals)
}

func readInt64s(r io.Reader) ([]int64, error) {
	n, err := readLen(r)
	if err != nil {
		return nil, err
	}
	vals := make([]int64, n)
	if err := binary.Read(r, binary.LittleEndian, vals); err != nil {
		return nil, err
	}
	return vals, nil
}

func writeStrings(w io.Writer, vals []string) error {
	if err := writeLen(w, len(vals)); err != nil {
		return err
	}
	for _, s := range vals {
		if err := writeLen(w, len(s)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, s); err != nil {
			return err
		}
	}
	return nil
}

func readStrings(r io.Reader) ([]string, error) {
	n, err := readLen(r)
	if err != nil {
		return nil, err
	}
	vals := make([]string, n)
	for i := range vals {
		sz, err := readLen(r)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, sz)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		vals[i] = string(buf)
	}
	return vals, nil
}

func writeBools(w io.Writer, vals []bool) error {
	if err := writeLen(w, len(vals)); err != nil {
		return err
	}
	buf := make([]byte, len(vals))
	for i, b := range vals {
		if b {
			buf[i] = 1
		}
	}
	_, err := w.Write(buf)
	return err
}

func readBools(r io.Reader) ([]bool, error) {
	n, err := readLen(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	vals := make([]bool, n)
	for i, b := range buf {
		vals[i] = b != 0
	}
	return vals, nil
}
