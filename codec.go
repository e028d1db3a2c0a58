package datacat

// Codec converts a bundle to and from a single blob on disk. The storage
// coordinator never inspects bundle contents; any conforming implementation
// is swappable without touching catalog logic.
//
// Update has replace semantics unless a codec documents otherwise; the
// coordinator always treats it as a full-bundle replace.
type Codec interface {
	// Save writes the bundle as one blob at path, replacing any existing file.
	Save(path string, bundle Bundle) error

	// Load reads the blob at path back into a bundle.
	Load(path string) (Bundle, error)

	// Update rewrites the blob at path with the given bundle.
	Update(path string, bundle Bundle) error

	// Delete removes the blob at path.
	Delete(path string) error

	// Extension returns the file suffix (without dot) used for blob paths.
	Extension() string
}
