package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Category is the cached inventory of one destination category.
type Category struct {
	// Code is the catalog category code this entry is keyed by.
	Code string

	// ID is the destination identifier the code resolved to.
	ID CategoryID

	// Built is when the inventory was listed from the destination.
	Built time.Time

	order []Fingerprint
	index map[Fingerprint]struct{}
}

func newCategory(code string, id CategoryID, fps []Fingerprint, built time.Time) *Category {
	c := &Category{
		Code:  code,
		ID:    id,
		Built: built,
		order: make([]Fingerprint, 0, len(fps)),
		index: make(map[Fingerprint]struct{}, len(fps)),
	}
	for _, fp := range fps {
		c.add(fp)
	}
	return c
}

func (c *Category) add(fp Fingerprint) bool {
	if _, ok := c.index[fp]; ok {
		return false
	}
	c.index[fp] = struct{}{}
	c.order = append(c.order, fp)
	return true
}

// Contains reports whether fp is already present in the category.
func (c *Category) Contains(fp Fingerprint) bool {
	_, ok := c.index[fp]
	return ok
}

// Len returns the number of distinct fingerprints.
func (c *Category) Len() int {
	return len(c.order)
}

// Fingerprints returns the fingerprints in insertion order.
func (c *Category) Fingerprints() []Fingerprint {
	out := make([]Fingerprint, len(c.order))
	copy(out, c.order)
	return out
}

// Inventory lazily builds and caches per-category fingerprint sets for one run.
// It is owned by a single engine and is not safe for concurrent use.
type Inventory struct {
	store      ContentStore
	categories map[string]*Category
	unresolved map[string]*CategoryResolutionError
	now        func() time.Time
}

// NewInventory creates an empty inventory backed by store.
func NewInventory(store ContentStore) *Inventory {
	return &Inventory{
		store:      store,
		categories: make(map[string]*Category),
		unresolved: make(map[string]*CategoryResolutionError),
		now:        time.Now,
	}
}

// Get returns the inventory for code, resolving and listing it on first use.
// A resolution failure is returned as *CategoryResolutionError and remembered for the run.
func (i *Inventory) Get(ctx context.Context, code string) (*Category, error) {
	if c, ok := i.categories[code]; ok {
		return c, nil
	}
	if cre, ok := i.unresolved[code]; ok {
		return nil, cre
	}

	id, err := i.store.ResolveCategory(ctx, code)
	if err != nil {
		var cre *CategoryResolutionError
		if errors.As(err, &cre) {
			i.unresolved[code] = cre
			return nil, cre
		}
		return nil, fmt.Errorf("resolve category %s: %w", code, err)
	}

	fps, err := i.store.ListExistingFingerprints(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list existing items for %s: %w", code, err)
	}

	c := newCategory(code, id, fps, i.now())
	i.categories[code] = c
	return c, nil
}

// Record marks fp as present in code after a successful upload.
func (i *Inventory) Record(code string, fp Fingerprint) error {
	c, ok := i.categories[code]
	if !ok {
		return fmt.Errorf("record %s: category %s not loaded", fp.Hex(), code)
	}
	c.add(fp)
	return nil
}

// Loaded reports whether code has been resolved and listed.
func (i *Inventory) Loaded(code string) bool {
	_, ok := i.categories[code]
	return ok
}

// Size returns the number of loaded categories.
func (i *Inventory) Size() int {
	return len(i.categories)
}
