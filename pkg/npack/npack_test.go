package npack

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/datacat-io/datacat"
)

func testBundle() datacat.Bundle {
	return datacat.Bundle{
		"floats":  datacat.NewFloats([]int{2}, []float64{1.5, -2.5}),
		"ints":    datacat.NewInts([]int{2}, []int64{3, 4}),
		"strings": datacat.NewStrings([]int{2}, []string{"x", "y"}),
		"bools":   datacat.NewBools([]int{2}, []bool{true, false}),
		"sparse":  datacat.NewSparse(2, 2, []int{0}, []int{1}, []float64{7}),
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	c := New()
	path := filepath.Join(t.TempDir(), "bundle."+c.Extension())

	bundle := testBundle()
	if err := c.Save(path, bundle); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := c.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !loaded.Equal(bundle) {
		t.Error("round-trip mismatch")
	}
}

func TestSaveOverwrites(t *testing.T) {
	c := New()
	path := filepath.Join(t.TempDir(), "bundle.npk")

	first := datacat.Bundle{"arr": datacat.NewFloats([]int{1}, []float64{1})}
	second := datacat.Bundle{"arr": datacat.NewFloats([]int{1}, []float64{2})}

	if err := c.Save(path, first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := c.Save(path, second); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	loaded, err := c.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !loaded.Equal(second) {
		t.Error("overwrite did not replace contents")
	}
}

func TestUpdateReplaces(t *testing.T) {
	c := New()
	path := filepath.Join(t.TempDir(), "bundle.npk")

	if err := c.Save(path, testBundle()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	replacement := datacat.Bundle{"only": datacat.NewInts([]int{1}, []int64{9})}
	if err := c.Update(path, replacement); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	loaded, err := c.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !loaded.Equal(replacement) {
		t.Error("update did not fully replace the bundle")
	}
}

func TestDelete(t *testing.T) {
	c := New()
	path := filepath.Join(t.TempDir(), "bundle.npk")

	if err := c.Save(path, testBundle()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := c.Delete(path); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Error("file still exists after delete")
	}

	// Missing file surfaces fs.ErrNotExist through the wrapper
	if err := c.Delete(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Delete() on missing file error = %v, want ErrNotExist", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	c := New()
	if _, err := c.Load(filepath.Join(t.TempDir(), "nope.npk")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want ErrNotExist", err)
	}
}

func TestLoadGarbage(t *testing.T) {
	c := New()
	path := filepath.Join(t.TempDir(), "garbage.npk")

	if err := os.WriteFile(path, []byte("definitely not a container"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Load(path); err == nil {
		t.Error("Load() succeeded on garbage input")
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	c := New()
	dir := t.TempDir()
	path := filepath.Join(dir, "bundle.npk")

	if err := c.Save(path, testBundle()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want only the committed blob", len(entries))
	}
}

func TestDeterministicBytes(t *testing.T) {
	// Equal bundles must serialize identically regardless of map order
	a, err := marshal(testBundle())
	if err != nil {
		t.Fatal(err)
	}
	b, err := marshal(testBundle())
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Error("equal bundles produced different container bytes")
	}
}

func TestExtension(t *testing.T) {
	if got := New().Extension(); got != "npk" {
		t.Errorf("Extension() = %q, want %q", got, "npk")
	}
}
