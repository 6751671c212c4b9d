package nomenclator

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/importlens/backend/internal/domain"
)

//go:embed data/ncm_seed.json
var seedCatalog []byte

// EmbeddedSource loads the NCM subset compiled into the binary
type EmbeddedSource struct{}

// NewEmbeddedSource creates a loader for the built-in catalog
func NewEmbeddedSource() *EmbeddedSource {
	return &EmbeddedSource{}
}

// Load decodes the embedded catalog
func (s *EmbeddedSource) Load(ctx context.Context) ([]domain.NCMEntry, error) {
	entries, err := decodeCatalog(seedCatalog)
	if err != nil {
		return nil, fmt.Errorf("%w: embedded catalog: %v", domain.ErrNomenclatorUnavailable, err)
	}
	log.Printf("[NCM] Loaded %d entries from embedded catalog", len(entries))
	return entries, nil
}

// FileSource loads a catalog from a JSON file of {code, description} objects
type FileSource struct {
	path string
}

// NewFileSource creates a loader for the catalog at path
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Load reads and decodes the catalog file
func (s *FileSource) Load(ctx context.Context) ([]domain.NCMEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNomenclatorUnavailable, err)
	}

	entries, err := decodeCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrNomenclatorUnavailable, s.path, err)
	}
	log.Printf("[NCM] Loaded %d entries from %s", len(entries), s.path)
	return entries, nil
}

func decodeCatalog(data []byte) ([]domain.NCMEntry, error) {
	var entries []domain.NCMEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	return entries, nil
}
