package core

import (
	"fmt"
	"sort"
)

// Resource names a kind of good participants can hold, need and trade.
type Resource string

// Default resource kinds used by the reference driver.
const (
	ResourceBooks  Resource = "books"
	ResourceTools  Resource = "tools"
	ResourceSkills Resource = "skills"
)

// Catalog is the enumerated set of resource kinds a simulation accepts.
// The zero value (and a nil *Catalog) accepts every kind.
type Catalog struct {
	kinds map[Resource]struct{}
}

// NewCatalog returns a catalog restricted to the given kinds.
func NewCatalog(kinds ...Resource) *Catalog {
	c := &Catalog{kinds: make(map[Resource]struct{}, len(kinds))}
	for _, k := range kinds {
		c.kinds[k] = struct{}{}
	}
	return c
}

// DefaultCatalog returns the books/tools/skills catalog.
func DefaultCatalog() *Catalog {
	return NewCatalog(ResourceBooks, ResourceTools, ResourceSkills)
}

// Contains reports whether r is a known kind. Unrestricted catalogs contain everything.
func (c *Catalog) Contains(r Resource) bool {
	if c == nil || len(c.kinds) == 0 {
		return true
	}
	_, ok := c.kinds[r]
	return ok
}

// Kinds returns the known kinds in sorted order.
func (c *Catalog) Kinds() []Resource {
	if c == nil {
		return nil
	}
	out := make([]Resource, 0, len(c.kinds))
	for k := range c.kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ValidateOffer checks every item of the offer against the catalog. Both
// sides must be non-empty and carry positive quantities. Holdings are not
// consulted.
func (c *Catalog) ValidateOffer(o TradeOffer) error {
	if len(o.offered) == 0 || len(o.requested) == 0 {
		return fmt.Errorf("%w: offer must name items on both sides", ErrInvalidOffer)
	}
	if err := c.validateItems("offered", o.offered); err != nil {
		return err
	}
	return c.validateItems("requested", o.requested)
}

// ValidateItems checks an arbitrary resource mapping (holdings, final terms).
func (c *Catalog) ValidateItems(items map[Resource]int) error {
	return c.validateItems("items", items)
}

func (c *Catalog) validateItems(side string, items map[Resource]int) error {
	for r, qty := range items {
		if !c.Contains(r) {
			return fmt.Errorf("%w: %s %q", ErrUnknownResource, side, r)
		}
		if qty <= 0 {
			return fmt.Errorf("%w: %s %q has non-positive quantity %d", ErrInvalidOffer, side, r, qty)
		}
	}
	return nil
}

// copyItems returns an independent copy of a resource mapping; nil becomes empty.
func copyItems(in map[Resource]int) map[Resource]int {
	out := make(map[Resource]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// CopyItems is the exported form of copyItems for sibling packages.
func CopyItems(in map[Resource]int) map[Resource]int { return copyItems(in) }
