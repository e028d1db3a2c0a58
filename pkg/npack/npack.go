// Package npack implements the datacat Codec as a single snappy-compressed
// container file per bundle, extension "npk". Arrays are stored in name
// order with the framed binary form from internal/encoding, and writes go
// through a temp file plus rename so readers never observe a half-written
// blob.
package npack

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/golang/snappy"
	"github.com/google/uuid"

	"github.com/datacat-io/datacat"
	"github.com/datacat-io/datacat/internal/encoding"
)

// Extension is the file suffix for npack blobs.
const Extension = "npk"

var magic = [4]byte{'N', 'P', 'K', '1'}

// ErrBadContainer is returned when a blob is not a valid npack container
var ErrBadContainer = errors.New("not an npack container")

// Codec reads and writes npack containers.
type Codec struct{}

// New returns the npack codec.
func New() *Codec {
	return &Codec{}
}

// Extension returns the file suffix used for blob paths.
func (c *Codec) Extension() string {
	return Extension
}

// Save writes the bundle as one container at path, replacing any existing
// file. The container is assembled in memory, compressed, written to a
// uniquely named temp file in the same directory and renamed into place.
func (c *Codec) Save(path string, bundle datacat.Bundle) error {
	raw, err := marshal(bundle)
	if err != nil {
		return err
	}
	compressed := snappy.Encode(nil, raw)

	tmp := filepath.Join(filepath.Dir(path), "."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, compressed, 0o644); err != nil {
		return fmt.Errorf("failed to write container: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to commit container: %w", err)
	}
	return nil
}

// Load reads the container at path back into a bundle.
func (c *Codec) Load(path string) (datacat.Bundle, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read container: %w", err)
	}
	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadContainer, err)
	}
	return unmarshal(raw)
}

// Update rewrites the container at path with the given bundle. npack has
// replace semantics: the previous contents are discarded wholesale.
func (c *Codec) Update(path string, bundle datacat.Bundle) error {
	return c.Save(path, bundle)
}

// Delete removes the container at path.
func (c *Codec) Delete(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete container: %w", err)
	}
	return nil
}

// marshal encodes a bundle into the uncompressed container form. Array
// names are written in sorted order so equal bundles produce equal bytes.
func marshal(bundle datacat.Bundle) ([]byte, error) {
	names := make([]string, 0, len(bundle))
	for name := range bundle {
		names = append(names, name)
	}
	sort.Strings(names)

	buf := new(bytes.Buffer)
	buf.Write(magic[:])
	if err := binary.Write(buf, binary.LittleEndian, int32(len(names))); err != nil {
		return nil, fmt.Errorf("failed to encode entry count: %w", err)
	}
	for _, name := range names {
		if err := binary.Write(buf, binary.LittleEndian, int32(len(name))); err != nil {
			return nil, fmt.Errorf("failed to encode name length: %w", err)
		}
		buf.WriteString(name)
		if err := encoding.WriteArray(buf, bundle[name]); err != nil {
			return nil, fmt.Errorf("array %q: %w", name, err)
		}
	}
	return buf.Bytes(), nil
}

// unmarshal decodes the uncompressed container form.
func unmarshal(raw []byte) (datacat.Bundle, error) {
	r := bytes.NewReader(raw)

	var got [4]byte
	if _, err := io.ReadFull(r, got[:]); err != nil || got != magic {
		return nil, ErrBadContainer
	}
	var count int32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("failed to decode entry count: %w", err)
	}
	if count < 0 {
		return nil, ErrBadContainer
	}

	bundle := make(datacat.Bundle, count)
	for i := int32(0); i < count; i++ {
		var nameLen int32
		if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
			return nil, fmt.Errorf("failed to decode name length: %w", err)
		}
		if nameLen < 0 {
			return nil, ErrBadContainer
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, fmt.Errorf("failed to decode name: %w", err)
		}
		arr, err := encoding.ReadArray(r)
		if err != nil {
			return nil, fmt.Errorf("array %q: %w", name, err)
		}
		bundle[string(name)] = arr
	}
	return bundle, nil
}
