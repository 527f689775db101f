package transcript

import (
	"context"
	"strings"
)

// NewStore picks the store backend: postgres when a database URL is
// configured, a JSON-file directory when a data dir is configured, otherwise
// in-memory.
func NewStore(ctx context.Context, databaseURL, dataDir string) (Store, error) {
	if strings.TrimSpace(databaseURL) != "" {
		return NewPostgresStore(ctx, databaseURL)
	}
	if strings.TrimSpace(dataDir) != "" {
		return NewFileStore(dataDir)
	}
	return NewInMemoryStore(), nil
}
