package datacat

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"sync"
)

// Storage is the storage coordinator: it pairs codec blobs on disk with
// catalog rows in SQLite and keeps the two consistent under save, update
// and delete.
//
// Single-process, synchronous model: every operation runs to completion on
// the caller's goroutine. Readers may run concurrently; concurrent writers
// against the same identifier race and need an external mutual-exclusion
// layer. The internal lock only guards the open/closed lifecycle.
type Storage struct {
	config  Config
	codec   Codec
	catalog *catalog
	logger  *slog.Logger
	mu      sync.RWMutex
	closed  bool
}

// Open creates a Storage instance, opening the catalog database and
// creating the blob root directory if missing. The catalog handle lives
// for the lifetime of the instance; release it with Close.
func Open(ctx context.Context, config Config, codec Codec) (*Storage, error) {
	if err := config.validate(); err != nil {
		return nil, wrapError("init", err)
	}
	if codec == nil {
		return nil, wrapError("init", fmt.Errorf("%w: codec is required", ErrInvalidConfig))
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		return nil, wrapError("init", fmt.Errorf("failed to create data dir: %w", err))
	}

	cat, err := newCatalog(ctx, config.CatalogPath, config.Fields)
	if err != nil {
		return nil, wrapError("init", err)
	}

	return &Storage{
		config:  config,
		codec:   codec,
		catalog: cat,
		logger:  config.Logger,
	}, nil
}

// Fields returns the declared schema fields in canonical order.
func (s *Storage) Fields() []string {
	out := make([]string, len(s.config.Fields))
	copy(out, s.config.Fields)
	return out
}

// Save stores a bundle under the identifier derived from its metadata and
// upserts the matching catalog row. The metadata key set must equal the
// schema exactly.
//
// Saving twice with identical metadata derives the same identifier and
// overwrites both blob and row: deduplication by metadata is the policy,
// not a collision bug, and the later bundle wins. The blob is written
// before the row, so a failure between the two leaves an orphan blob
// rather than a row pointing at nothing.
func (s *Storage) Save(ctx context.Context, bundle Bundle, metadata map[string]string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", wrapError("save", ErrStoreClosed)
	}

	id, err := deriveID(s.config.Fields, metadata)
	if err != nil {
		return "", wrapError("save", err)
	}
	if err := bundle.Validate(); err != nil {
		return "", wrapError("save", err)
	}

	path := s.blobPath(id)
	if err := ensureShardDir(path); err != nil {
		return "", wrapError("save", fmt.Errorf("failed to create shard dir: %w", err))
	}
	if err := s.codec.Save(path, bundle); err != nil {
		return "", wrapError("save", wrapCodecError(path, err))
	}
	if err := s.catalog.upsert(ctx, id, metadata); err != nil {
		// Orphan blob left behind on purpose: re-save with the same
		// metadata overwrites it.
		return "", wrapError("save", err)
	}

	s.logger.Debug("object saved", "id", id, "arrays", len(bundle))
	return id, nil
}

// Load reads the bundle for an identifier. ErrNotFound if no catalog row
// exists; ErrIntegrity if the row exists but the blob is missing, which
// signals a violated invariant rather than "never existed".
func (s *Storage) Load(ctx context.Context, id string) (Bundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, wrapError("load", ErrStoreClosed)
	}
	if !validIDHex(id) {
		return nil, wrapError("load", fmt.Errorf("%w: malformed identifier %q", ErrNotFound, id))
	}

	if _, err := s.catalog.get(ctx, id); err != nil {
		return nil, wrapError("load", err)
	}

	path := s.blobPath(id)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, wrapError("load", fmt.Errorf("%w: blob missing for %s", ErrIntegrity, id))
		}
		return nil, wrapError("load", err)
	}

	bundle, err := s.codec.Load(path)
	if err != nil {
		return nil, wrapError("load", wrapCodecError(path, err))
	}
	return bundle, nil
}

// Get returns the catalog row for an identifier without touching the blob.
func (s *Storage) Get(ctx context.Context, id string) (Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Row{}, wrapError("get", ErrStoreClosed)
	}
	if !validIDHex(id) {
		return Row{}, wrapError("get", fmt.Errorf("%w: malformed identifier %q", ErrNotFound, id))
	}

	row, err := s.catalog.get(ctx, id)
	if err != nil {
		return Row{}, wrapError("get", err)
	}
	return row, nil
}

// Update modifies a stored object's payload and/or metadata. The row must
// exist. A metadata patch merges onto the existing values; patch keys must
// be declared schema fields. If the patched metadata derives a different
// identifier the object is renamed: the blob is written at the new path and
// the old row and blob are removed only after the new pair is durable. A
// metadata-only update refreshes the row without touching the blob; a nil
// patch with a non-nil bundle rewrites the blob in place.
func (s *Storage) Update(ctx context.Context, id string, bundle Bundle, metadataPatch map[string]string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return wrapError("update", ErrStoreClosed)
	}
	if !validIDHex(id) {
		return wrapError("update", fmt.Errorf("%w: malformed identifier %q", ErrNotFound, id))
	}

	row, err := s.catalog.get(ctx, id)
	if err != nil {
		return wrapError("update", err)
	}
	if err := checkPatch(s.config.Fields, metadataPatch); err != nil {
		return wrapError("update", err)
	}
	if bundle != nil {
		if err := bundle.Validate(); err != nil {
			return wrapError("update", err)
		}
	}

	metadata := maps.Clone(row.Metadata)
	maps.Copy(metadata, metadataPatch)

	newID, err := deriveID(s.config.Fields, metadata)
	if err != nil {
		return wrapError("update", err)
	}

	if newID != id {
		if err := s.rename(ctx, id, newID, bundle, metadata); err != nil {
			return wrapError("update", err)
		}
		s.logger.Debug("object renamed", "from", id, "to", newID)
		return nil
	}

	if bundle != nil {
		path := s.blobPath(id)
		if err := s.codec.Update(path, bundle); err != nil {
			return wrapError("update", wrapCodecError(path, err))
		}
	}
	if err := s.catalog.upsert(ctx, id, metadata); err != nil {
		return wrapError("update", err)
	}

	s.logger.Debug("object updated", "id", id, "payload", bundle != nil)
	return nil
}

// rename moves an object to the identifier derived from its new metadata.
// The new blob and row are written before the old pair is removed, so the
// data survives a failure at any step.
func (s *Storage) rename(ctx context.Context, oldID, newID string, bundle Bundle, metadata map[string]string) error {
	oldPath := s.blobPath(oldID)
	newPath := s.blobPath(newID)

	if bundle == nil {
		loaded, err := s.codec.Load(oldPath)
		if err != nil {
			if _, statErr := os.Stat(oldPath); errors.Is(statErr, fs.ErrNotExist) {
				return fmt.Errorf("%w: blob missing for %s", ErrIntegrity, oldID)
			}
			return wrapCodecError(oldPath, err)
		}
		bundle = loaded
	}

	if err := ensureShardDir(newPath); err != nil {
		return fmt.Errorf("failed to create shard dir: %w", err)
	}
	if err := s.codec.Save(newPath, bundle); err != nil {
		return wrapCodecError(newPath, err)
	}
	if err := s.catalog.upsert(ctx, newID, metadata); err != nil {
		return err
	}
	if err := s.catalog.delete(ctx, oldID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err := s.codec.Delete(oldPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return wrapCodecError(oldPath, err)
	}
	return nil
}

// Delete removes both the catalog row and the blob for an identifier.
// ErrNotFound if the row does not exist; an already-absent blob is
// tolerated so a delete can finish cleaning up a torn state.
func (s *Storage) Delete(ctx context.Context, id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return wrapError("delete", ErrStoreClosed)
	}
	if !validIDHex(id) {
		return wrapError("delete", fmt.Errorf("%w: malformed identifier %q", ErrNotFound, id))
	}

	if _, err := s.catalog.get(ctx, id); err != nil {
		return wrapError("delete", err)
	}

	path := s.blobPath(id)
	if err := s.codec.Delete(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return wrapError("delete", wrapCodecError(path, err))
	}
	if err := s.catalog.delete(ctx, id); err != nil {
		return wrapError("delete", err)
	}

	s.logger.Debug("object deleted", "id", id)
	return nil
}

// Query returns catalog rows matching the options; blobs are not touched.
// Field filters and the raw predicate are ANDed. Each call runs one full
// SQL pass and returns a materialized slice; there is no cross-call cursor.
func (s *Storage) Query(ctx context.Context, opts QueryOptions) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, wrapError("query", ErrStoreClosed)
	}

	rows, err := s.catalog.query(ctx, opts)
	if err != nil {
		return nil, wrapError("query", err)
	}
	return rows, nil
}

// ListAll returns every catalog row.
func (s *Storage) ListAll(ctx context.Context) ([]Row, error) {
	return s.Query(ctx, QueryOptions{})
}

// Stats aggregates over the whole catalog: row count, database size and
// per-column distinct/min/max. This is a full-table scan; cost grows
// linearly with the catalog.
func (s *Storage) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Stats{}, wrapError("stats", ErrStoreClosed)
	}

	stats, err := s.catalog.stats(ctx)
	if err != nil {
		return Stats{}, wrapError("stats", err)
	}
	return stats, nil
}

// Clear removes every stored object, blobs and rows both.
func (s *Storage) Clear(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return wrapError("clear", ErrStoreClosed)
	}

	ids, err := s.catalog.listIDs(ctx)
	if err != nil {
		return wrapError("clear", err)
	}
	for _, id := range ids {
		path := s.blobPath(id)
		if err := s.codec.Delete(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return wrapError("clear", wrapCodecError(path, err))
		}
	}
	if err := s.catalog.clear(ctx); err != nil {
		return wrapError("clear", err)
	}

	s.logger.Debug("storage cleared", "objects", len(ids))
	return nil
}

// Close releases the catalog handle. Subsequent operations fail with
// ErrStoreClosed.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.catalog.close()
}

// blobPath derives the sharded blob path for an identifier.
func (s *Storage) blobPath(id string) string {
	return shardPath(s.config.DataDir, id, s.codec.Extension())
}
