package datacat

import "fmt"

// Kind identifies the element type of an Array.
type Kind uint8

// Array kinds
const (
	Float64 Kind = iota + 1
	Int64
	String
	Bool
	Sparse // 2-D COO matrix with float64 values
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case Float64:
		return "float64"
	case Int64:
		return "int64"
	case String:
		return "string"
	case Bool:
		return "bool"
	case Sparse:
		return "sparse"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Array is a dense row-major array of a single element type, or a sparse
// 2-D matrix in COO form. Exactly one backing slice is populated, matching
// Kind. The coordinator never interprets array contents; only codecs do.
type Array struct {
	Kind  Kind
	Shape []int

	Floats  []float64
	Ints    []int64
	Strings []string
	Bools   []bool

	// COO triplets, parallel to Floats, for Kind == Sparse
	Rows []int
	Cols []int
}

// Bundle is a named collection of arrays treated as one opaque unit by the
// storage coordinator.
type Bundle map[string]*Array

// NewFloats builds a dense float64 array with the given shape.
func NewFloats(shape []int, values []float64) *Array {
	return &Array{Kind: Float64, Shape: shape, Floats: values}
}

// NewInts builds a dense int64 array with the given shape.
func NewInts(shape []int, values []int64) *Array {
	return &Array{Kind: Int64, Shape: shape, Ints: values}
}

// NewStrings builds a dense string array with the given shape.
func NewStrings(shape []int, values []string) *Array {
	return &Array{Kind: String, Shape: shape, Strings: values}
}

// NewBools builds a dense bool array with the given shape.
func NewBools(shape []int, values []bool) *Array {
	return &Array{Kind: Bool, Shape: shape, Bools: values}
}

// NewSparse builds a sparse matrix from COO triplets over a rows x cols shape.
func NewSparse(rows, cols int, rowIdx, colIdx []int, values []float64) *Array {
	return &Array{
		Kind:   Sparse,
		Shape:  []int{rows, cols},
		Rows:   rowIdx,
		Cols:   colIdx,
		Floats: values,
	}
}

// Len returns the number of dense elements implied by the shape, or the
// number of stored triplets for a sparse array.
func (a *Array) Len() int {
	if a.Kind == Sparse {
		return len(a.Floats)
	}
	n := 1
	for _, d := range a.Shape {
		n *= d
	}
	if len(a.Shape) == 0 {
		return 0
	}
	return n
}

// Validate checks that the shape agrees with the backing slice.
func (a *Array) Validate() error {
	if a == nil {
		return fmt.Errorf("%w: nil array", ErrInvalidBundle)
	}
	for _, d := range a.Shape {
		if d < 0 {
			return fmt.Errorf("%w: negative dimension %d", ErrInvalidBundle, d)
		}
	}
	switch a.Kind {
	case Float64:
		return a.checkLen(len(a.Floats))
	case Int64:
		return a.checkLen(len(a.Ints))
	case String:
		return a.checkLen(len(a.Strings))
	case Bool:
		return a.checkLen(len(a.Bools))
	case Sparse:
		if len(a.Shape) != 2 {
			return fmt.Errorf("%w: sparse array must be 2-D, got %d dims", ErrInvalidBundle, len(a.Shape))
		}
		if len(a.Rows) != len(a.Floats) || len(a.Cols) != len(a.Floats) {
			return fmt.Errorf("%w: sparse triplet slices disagree: %d rows, %d cols, %d values",
				ErrInvalidBundle, len(a.Rows), len(a.Cols), len(a.Floats))
		}
		for i := range a.Rows {
			if a.Rows[i] < 0 || a.Rows[i] >= a.Shape[0] || a.Cols[i] < 0 || a.Cols[i] >= a.Shape[1] {
				return fmt.Errorf("%w: sparse index (%d,%d) outside shape %dx%d",
					ErrInvalidBundle, a.Rows[i], a.Cols[i], a.Shape[0], a.Shape[1])
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %v", ErrInvalidBundle, a.Kind)
	}
}

func (a *Array) checkLen(got int) error {
	if want := a.Len(); got != want {
		return fmt.Errorf("%w: shape %v implies %d elements, got %d", ErrInvalidBundle, a.Shape, want, got)
	}
	return nil
}

// Equal reports whether two arrays hold the same kind, shape and contents.
func (a *Array) Equal(b *Array) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || !intsEqual(a.Shape, b.Shape) {
		return false
	}
	switch a.Kind {
	case Float64:
		return floatsEqual(a.Floats, b.Floats)
	case Int64:
		if len(a.Ints) != len(b.Ints) {
			return false
		}
		for i := range a.Ints {
			if a.Ints[i] != b.Ints[i] {
				return false
			}
		}
	case String:
		if len(a.Strings) != len(b.Strings) {
			return false
		}
		for i := range a.Strings {
			if a.Strings[i] != b.Strings[i] {
				return false
			}
		}
	case Bool:
		if len(a.Bools) != len(b.Bools) {
			return false
		}
		for i := range a.Bools {
			if a.Bools[i] != b.Bools[i] {
				return false
			}
		}
	case Sparse:
		return intsEqual(a.Rows, b.Rows) && intsEqual(a.Cols, b.Cols) && floatsEqual(a.Floats, b.Floats)
	}
	return true
}

func intsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func floatsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Validate checks every array in the bundle. A bundle must be non-empty and
// every name non-blank.
func (b Bundle) Validate() error {
	if len(b) == 0 {
		return fmt.Errorf("%w: empty bundle", ErrInvalidBundle)
	}
	for name, arr := range b {
		if name == "" {
			return fmt.Errorf("%w: blank array name", ErrInvalidBundle)
		}
		if err := arr.Validate(); err != nil {
			return fmt.Errorf("array %q: %w", name, err)
		}
	}
	return nil
}

// Equal reports whether two bundles hold the same arrays under the same names.
func (b Bundle) Equal(other Bundle) bool {
	if len(b) != len(other) {
		return false
	}
	for name, arr := range b {
		o, ok := other[name]
		if !ok || !arr.Equal(o) {
			return false
		}
	}
	return true
}
