// Package datacat provides a content-addressed store for named-array
// bundles with a queryable metadata catalog.
//
// datacat pairs every payload bundle with a row in an embedded SQLite
// catalog (modernc.org/sqlite, no CGO required). The object identifier is a
// SHA-256 digest derived deterministically from the metadata values in
// schema order, so the same metadata always maps to the same object and
// re-saving with identical metadata overwrites in place. Blobs are laid
// out under two levels of two-hex-character shard directories to bound
// directory fan-out.
//
// # Quick Start
//
//	import (
//	    "context"
//
//	    "github.com/datacat-io/datacat"
//	    "github.com/datacat-io/datacat/pkg/npack"
//	)
//
//	func main() {
//	    ctx := context.Background()
//	    store, _ := datacat.Open(ctx, datacat.Config{
//	        CatalogPath: "catalog.db",
//	        DataDir:     "data",
//	        Fields:      []string{"dim1", "dim2", "date"},
//	    }, npack.New())
//	    defer store.Close()
//
//	    bundle := datacat.Bundle{
//	        "arr": datacat.NewFloats([]int{3}, []float64{1, 2, 3}),
//	    }
//	    id, _ := store.Save(ctx, bundle, map[string]string{
//	        "dim1": "A", "dim2": "B", "date": "2024-01-01",
//	    })
//
//	    loaded, _ := store.Load(ctx, id)
//	    _ = loaded
//	}
//
// # Payload codecs
//
// The coordinator never inspects bundle contents. Any type satisfying the
// Codec interface (Save/Load/Update/Delete plus a file extension) can be
// plugged in; pkg/npack ships a snappy-compressed single-file container
// supporting dense float64/int64/string/bool arrays and sparse COO
// matrices.
//
// # Consistency
//
// A successful Save leaves both blob and row present; Delete removes both.
// On Save the blob is written before the row, biasing partial failure
// toward an orphan blob instead of a dangling catalog reference. Load
// distinguishes ErrNotFound (no row) from ErrIntegrity (row without blob).
// Integrity violations are detected, never silently repaired.
package datacat
