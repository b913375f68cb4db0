package ports

import "context"

// Document name extensions.
const (
	HomeExt   = ".dyn"
	CustomExt = ".dyf"
)

// DocumentStore persists encoded workspace documents.
// Names are slash-separated and carry their extension.
type DocumentStore interface {
	// Save writes data under name, replacing any previous document.
	Save(ctx context.Context, name string, data []byte) error

	// Load returns the document stored under name.
	// Returns domain.ErrDocumentNotFound if it does not exist.
	Load(ctx context.Context, name string) ([]byte, error)

	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the stored document names, sorted.
	List(ctx context.Context) ([]string, error)
}
