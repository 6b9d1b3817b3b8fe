// Package market holds the read-only market value catalog consumed by the
// policy layer. The lifecycle engine never mutates entries; staff tooling
// maintains them out of band and the daemon loads a snapshot at startup.
package market

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/grandline/auctionhouse/policy"
)

// Entry is one catalog row, keyed by the normalized item name.
type Entry struct {
	Name        string        `yaml:"name"`
	LowestValue int64         `yaml:"lowest_value"`
	Exclusive   bool          `yaml:"exclusive"`
	Rarity      policy.Rarity `yaml:"rarity"`
}

// Catalog is an in-memory market value cache. It implements policy.Valuer.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]Entry)}
}

// LoadFile reads a yaml catalog snapshot: a list of entries with name,
// lowest_value, exclusive and rarity fields.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	c := NewCatalog()
	for _, e := range entries {
		c.Put(e)
	}
	return c, nil
}

// Put adds or replaces an entry under its normalized name.
func (c *Catalog) Put(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[NormalizeName(e.Name)] = e
}

// LowestValue returns the lowest observed market price for an item.
func (c *Catalog) LowestValue(name string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[NormalizeName(name)]
	if !ok {
		return 0, false
	}
	return e.LowestValue, true
}

// IsExclusive reports whether the item carries the exclusivity flag.
// Unknown items are not exclusive.
func (c *Catalog) IsExclusive(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[NormalizeName(name)]
	return ok && e.Exclusive
}

// Rarity returns the item's rarity tier.
func (c *Catalog) Rarity(name string) (policy.Rarity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[NormalizeName(name)]
	if !ok || e.Rarity == "" {
		return "", false
	}
	return e.Rarity, true
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// NormalizeName canonicalizes an item name for catalog lookup. The chat
// surface uses shorthand prefixes ("gmax bulbasaur", "sgmax charizard",
// "smega-gengar") while catalog keys carry the long form.
func NormalizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	switch {
	case strings.HasPrefix(n, "sgmax "):
		return "shiny gigantamax-" + strings.TrimSpace(n[6:])
	case strings.HasPrefix(n, "gmax "):
		return "gigantamax-" + strings.TrimSpace(n[5:])
	case strings.Contains(n, "smega"):
		n = strings.ReplaceAll(n, "smega", "shiny mega")
		return strings.ReplaceAll(n, "-", " ")
	case strings.Contains(n, "mega"):
		return strings.ReplaceAll(n, "-", " ")
	default:
		return n
	}
}
