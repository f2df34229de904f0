package unit

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Loader fetches conversion rows from a backing store
type Loader interface {
	LoadConversions(ctx context.Context) ([]Conversion, error)
}

// Registry holds the current conversion table snapshot and supports atomic
// reloads. Readers always see a complete table: a reload either swaps in a
// fully built replacement or leaves the old snapshot untouched.
type Registry struct {
	table  atomic.Pointer[Table]
	loader Loader
}

// NewRegistry creates a registry backed by the given loader.
// The initial load must succeed before the registry is usable.
func NewRegistry(ctx context.Context, loader Loader) (*Registry, error) {
	r := &Registry{loader: loader}
	if err := r.Reload(ctx); err != nil {
		return nil, fmt.Errorf("initial unit conversion load failed: %w", err)
	}
	return r, nil
}

// NewStaticRegistry creates a registry from a fixed table, for tests
func NewStaticRegistry(table *Table) *Registry {
	r := &Registry{}
	r.table.Store(table)
	return r
}

// Table returns the current snapshot
func (r *Registry) Table() *Table {
	return r.table.Load()
}

// Reload rebuilds the table from the loader and swaps it in.
// On failure the previous snapshot stays in effect.
func (r *Registry) Reload(ctx context.Context) error {
	if r.loader == nil {
		return fmt.Errorf("registry has no loader")
	}
	conversions, err := r.loader.LoadConversions(ctx)
	if err != nil {
		return err
	}
	table, err := NewTable(conversions)
	if err != nil {
		return err
	}
	r.table.Store(table)
	return nil
}
