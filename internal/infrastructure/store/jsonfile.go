package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/grocerwatch/backend/internal/domain"
)

// storeVersion is the persistence envelope version. Bump when the on-disk
// shape changes incompatibly.
const storeVersion = 1

// envelope is the on-disk format: a versioned, name-keyed product map.
type envelope struct {
	Version  int                               `json:"version"`
	Products map[string]*domain.TrackedProduct `json:"products"`
}

// FileStore persists tracked products as a single JSON file. Writes go
// through a temp file and rename, so a crash never leaves a half-written
// store behind.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// New creates a FileStore backed by the given path. The file is created on
// first write; a missing file reads as an empty store.
func New(path string) *FileStore {
	return &FileStore{path: path}
}

// LoadAll returns every tracked product, sorted by name.
func (s *FileStore) LoadAll(ctx context.Context) ([]*domain.TrackedProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.read()
	if err != nil {
		return nil, err
	}

	products := make([]*domain.TrackedProduct, 0, len(env.Products))
	for _, p := range env.Products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

// SaveAll replaces the entire store contents atomically.
func (s *FileStore) SaveAll(ctx context.Context, products []*domain.TrackedProduct) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env := envelope{Version: storeVersion, Products: make(map[string]*domain.TrackedProduct, len(products))}
	for _, p := range products {
		env.Products[p.Name] = p
	}
	return s.write(env)
}

// Upsert inserts or replaces a single product.
func (s *FileStore) Upsert(ctx context.Context, product *domain.TrackedProduct) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.read()
	if err != nil {
		return err
	}
	env.Products[product.Name] = product
	return s.write(env)
}

// Delete removes a product by name; a missing name is ErrProductNotFound.
func (s *FileStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := env.Products[name]; !ok {
		return domain.ErrProductNotFound
	}
	delete(env.Products, name)
	return s.write(env)
}

// read loads the envelope from disk. Parse failures are ErrMalformedState and
// never trigger a write, so a corrupt file is preserved for inspection.
func (s *FileStore) read() (envelope, error) {
	env := envelope{Version: storeVersion, Products: make(map[string]*domain.TrackedProduct)}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return env, nil
	}
	if err != nil {
		return env, fmt.Errorf("read store: %w", err)
	}

	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("%w: %s: %v", domain.ErrMalformedState, s.path, err)
	}
	if env.Products == nil {
		env.Products = make(map[string]*domain.TrackedProduct)
	}
	return env, nil
}

func (s *FileStore) write(env envelope) error {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".grocerwatch-*.json")
	if err != nil {
		return fmt.Errorf("create temp store: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp store: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}
