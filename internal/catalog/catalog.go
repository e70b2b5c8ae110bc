// Package catalog holds the known-medication reference catalog and its
// lookup indexes. A Catalog is immutable after construction and safe for
// concurrent use without locking.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"gopkg.in/yaml.v3"
)

//go:embed data/medications.yaml
var defaultCatalogYAML []byte

// MinTokenLength is the exclusive lower bound on name tokens used for partial matches.
const MinTokenLength = 3

var dosagePattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s?(mg|ml|g)\b`)

type catalogFile struct {
	Entries []entities.CatalogEntry `yaml:"entries"`
}

type indexedEntry struct {
	product  string
	generic  string
	strength string
	tokens   []string
}

// Catalog is the in-memory known-medication catalog.
type Catalog struct {
	entries   []entities.CatalogEntry
	indexed   []indexedEntry
	byBarcode map[string]int
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(defaultCatalogYAML)
		if err != nil {
			panic(fmt.Sprintf("embedded medication catalog is invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// LoadFile reads a YAML catalog from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse builds a catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return New(file.Entries)
}

// New validates entries and builds the lookup indexes. Entry order is kept
// and decides every tie.
func New(entries []entities.CatalogEntry) (*Catalog, error) {
	c := &Catalog{
		entries:   make([]entities.CatalogEntry, 0, len(entries)),
		indexed:   make([]indexedEntry, 0, len(entries)),
		byBarcode: make(map[string]int),
	}

	for i, e := range entries {
		e.Barcode = strings.TrimSpace(e.Barcode)
		e.ProductName = strings.TrimSpace(e.ProductName)
		e.GenericName = strings.TrimSpace(e.GenericName)
		if e.ProductName == "" {
			return nil, fmt.Errorf("catalog entry %d: product name is required", i)
		}

		pos := len(c.entries)
		if e.Barcode != "" {
			if prev, dup := c.byBarcode[e.Barcode]; dup {
				return nil, fmt.Errorf("catalog entry %d: barcode %s already used by %q", i, e.Barcode, c.entries[prev].ProductName)
			}
			c.byBarcode[e.Barcode] = pos
		}

		product := strings.ToLower(e.ProductName)
		generic := strings.ToLower(e.GenericName)
		c.entries = append(c.entries, e)
		c.indexed = append(c.indexed, indexedEntry{
			product:  product,
			generic:  generic,
			strength: compactLower(e.Strength),
			tokens:   nameTokens(product, generic),
		})
	}

	return c, nil
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Entries returns a copy of all entries in catalog order.
func (c *Catalog) Entries() []entities.CatalogEntry {
	out := make([]entities.CatalogEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Regions returns the distinct region tags in first-seen order.
func (c *Catalog) Regions() []string {
	seen := make(map[string]bool)
	var regions []string
	for _, e := range c.entries {
		if e.Region != "" && !seen[e.Region] {
			seen[e.Region] = true
			regions = append(regions, e.Region)
		}
	}
	return regions
}

// LookupBarcode finds the entry with exactly this barcode.
func (c *Catalog) LookupBarcode(code string) (entities.CatalogEntry, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return entities.CatalogEntry{}, false
	}
	pos, ok := c.byBarcode[code]
	if !ok {
		return entities.CatalogEntry{}, false
	}
	return c.entries[pos], true
}

// FindByProductName returns the first entry whose product name occurs in
// lowerText. lowerText must already be lowercased.
func (c *Catalog) FindByProductName(lowerText string) (entities.CatalogEntry, bool) {
	for i, idx := range c.indexed {
		if idx.product != "" && strings.Contains(lowerText, idx.product) {
			return c.entries[i], true
		}
	}
	return entities.CatalogEntry{}, false
}

// FindByGenericName returns the first entry whose generic name occurs in lowerText.
func (c *Catalog) FindByGenericName(lowerText string) (entities.CatalogEntry, bool) {
	for i, idx := range c.indexed {
		if idx.generic != "" && strings.Contains(lowerText, idx.generic) {
			return c.entries[i], true
		}
	}
	return entities.CatalogEntry{}, false
}

// FindByNameToken returns the first entry with a product or generic name token
// longer than MinTokenLength that occurs in lowerText.
func (c *Catalog) FindByNameToken(lowerText string) (entities.CatalogEntry, bool) {
	for i, idx := range c.indexed {
		for _, token := range idx.tokens {
			if strings.Contains(lowerText, token) {
				return c.entries[i], true
			}
		}
	}
	return entities.CatalogEntry{}, false
}

// FindByDosage returns the first entry whose strength contains the normalized
// dosage (for example "500mg"). Matching is by substring, so "500mg" also
// finds a "1500mg" strength listed earlier.
func (c *Catalog) FindByDosage(dosage string) (entities.CatalogEntry, bool) {
	dosage = normalizeDosage(dosage)
	if dosage == "" {
		return entities.CatalogEntry{}, false
	}
	for i, idx := range c.indexed {
		if strings.Contains(idx.strength, dosage) {
			return c.entries[i], true
		}
	}
	return entities.CatalogEntry{}, false
}

// ExtractDosages returns every <number><mg|ml|g> occurrence in s, normalized
// to lowercase without inner whitespace, in order of appearance.
func ExtractDosages(s string) []string {
	matches := dosagePattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1]+strings.ToLower(m[2]))
	}
	return out
}

// FirstDosage returns the first dosage in s.
func FirstDosage(s string) (string, bool) {
	doses := ExtractDosages(s)
	if len(doses) == 0 {
		return "", false
	}
	return doses[0], true
}

func normalizeDosage(dosage string) string {
	if d, ok := FirstDosage(dosage); ok {
		return d
	}
	return compactLower(dosage)
}

func compactLower(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

func nameTokens(names ...string) []string {
	var tokens []string
	seen := make(map[string]bool)
	for _, name := range names {
		for _, token := range strings.Fields(name) {
			if len([]rune(token)) <= MinTokenLength || seen[token] {
				continue
			}
			seen[token] = true
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// Shadow is an entry that can never win a product-name match because an
// earlier entry's product name is contained in its own.
type Shadow struct {
	Entry      entities.CatalogEntry
	ShadowedBy entities.CatalogEntry
}

// Shadows lists entries hidden by an earlier, shorter product name. An empty
// result means the catalog order is safe.
func (c *Catalog) Shadows() []Shadow {
	var out []Shadow
	for j := range c.indexed {
		for i := 0; i < j; i++ {
			if c.indexed[i].product != "" && strings.Contains(c.indexed[j].product, c.indexed[i].product) {
				out = append(out, Shadow{Entry: c.entries[j], ShadowedBy: c.entries[i]})
				break
			}
		}
	}
	return out
}
