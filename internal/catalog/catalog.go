package catalog

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/samber/lo"
)

var (
	ErrEmptyCatalog = errors.New("catalog has no entries")
	ErrUnknownRef   = errors.New("unknown reference id")
)

// ReferenceImage is one target scene players try to recreate via prompting.
// Entries are built once at startup and never mutated.
type ReferenceImage struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ImageRef    string   `json:"imageRef"`
	PromptHints []string `json:"promptHints"`
}

type Catalog struct {
	entries []ReferenceImage
}

func New(entries []ReferenceImage) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyCatalog
	}
	out := make([]ReferenceImage, len(entries))
	copy(out, entries)
	return &Catalog{entries: out}, nil
}

// Default returns the built-in scene catalog.
func Default() *Catalog {
	c, _ := New([]ReferenceImage{
		{
			ID:          "city",
			Title:       "Neon City",
			Description: "A glowing city skyline at night, reflected in water.",
			ImageRef:    "city.png",
			PromptHints: []string{"skyline", "neon lights", "night", "reflection"},
		},
		{
			ID:          "forest",
			Title:       "Misty Forest",
			Description: "Tall pines in morning fog with sunbeams breaking through.",
			ImageRef:    "forest.png",
			PromptHints: []string{"pine trees", "fog", "sunbeams", "morning"},
		},
		{
			ID:          "mountain",
			Title:       "Alpine Peak",
			Description: "A snow-capped mountain above a turquoise lake.",
			ImageRef:    "mountain.png",
			PromptHints: []string{"snow", "peak", "lake", "turquoise"},
		},
	})
	return c
}

func (c *Catalog) Len() int { return len(c.entries) }

// Entries returns a copy so callers cannot mutate the catalog.
func (c *Catalog) Entries() []ReferenceImage {
	out := make([]ReferenceImage, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Catalog) Lookup(id string) (ReferenceImage, error) {
	for _, e := range c.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return ReferenceImage{}, ErrUnknownRef
}

// PickRandom selects a uniformly random entry. When excludeID is non-empty
// and at least one other entry exists, the excluded id is never returned.
// The random source is injected so callers can fix it in tests.
func (c *Catalog) PickRandom(rng *rand.Rand, excludeID string) ReferenceImage {
	pool := c.entries
	if excludeID != "" {
		filtered := lo.Filter(c.entries, func(e ReferenceImage, _ int) bool {
			return e.ID != excludeID
		})
		if len(filtered) > 0 {
			pool = filtered
		}
	}
	return pool[rng.Intn(len(pool))]
}

// DirSource resolves catalog image refs against a directory on disk.
type DirSource struct {
	Root string
}

func (d DirSource) Load(ref string) ([]byte, error) {
	return os.ReadFile(filepath.Join(d.Root, filepath.Clean(ref)))
}
