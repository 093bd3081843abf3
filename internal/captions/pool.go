// Package captions holds the canned caption tables and picks captions for an upload.
package captions

import (
	"fmt"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxCaptions is the upper bound on the number of captions produced for one upload.
const MaxCaptions = 8

// Category is a named thematic caption list.
type Category struct {
	Name     string   `yaml:"name"`
	Captions []string `yaml:"captions"`
}

// Pool is an immutable set of tier and category caption tables.
type Pool struct {
	tiers      map[Tier][]string
	categories []Category
}

// Rand is the random source used for selection. *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

// poolFile is the on-disk YAML layout accepted by LoadPool.
type poolFile struct {
	Tiers      map[Tier][]string `yaml:"tiers"`
	Categories []Category        `yaml:"categories"`
}

// DefaultPool returns the built-in caption tables.
func DefaultPool() *Pool {
	p, err := NewPool(defaultTiers, defaultCategories)
	if err != nil {
		panic(err)
	}
	return p
}

// NewPool copies the given tables into a read-only Pool.
// Parameters:
//   - tiers: captions per size tier; every tier must have at least one caption.
//   - categories: thematic categories; each must be named and non-empty.
// Returns:
//   - *Pool: validated pool.
//   - error: non-nil if a table is missing or empty.
func NewPool(tiers map[Tier][]string, categories []Category) (*Pool, error) {
	p := &Pool{tiers: make(map[Tier][]string, 3)}
	for _, tier := range []Tier{TierSmall, TierMedium, TierLarge} {
		list := nonEmpty(tiers[tier])
		if len(list) == 0 {
			return nil, fmt.Errorf("tier %q has no captions", tier)
		}
		p.tiers[tier] = list
	}

	seen := make(map[string]bool, len(categories))
	for _, c := range categories {
		if c.Name == "" {
			return nil, fmt.Errorf("caption category without a name")
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate caption category %q", c.Name)
		}
		seen[c.Name] = true
		list := nonEmpty(c.Captions)
		if len(list) == 0 {
			return nil, fmt.Errorf("category %q has no captions", c.Name)
		}
		p.categories = append(p.categories, Category{Name: c.Name, Captions: list})
	}
	return p, nil
}

// LoadPool reads caption tables from a YAML file.
// Parameters:
//   - path: YAML file with "tiers" and "categories" keys.
// Returns:
//   - *Pool: validated pool.
//   - error: non-nil if the file cannot be read or fails validation.
func LoadPool(path string) (*Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read caption file: %w", err)
	}
	var f poolFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse caption file: %w", err)
	}
	return NewPool(f.Tiers, f.Categories)
}

// Categories returns the category names in table order.
func (p *Pool) Categories() []string {
	names := make([]string, len(p.categories))
	for i, c := range p.categories {
		names[i] = c.Name
	}
	return names
}

// TierCaptions returns a copy of the captions of tier.
func (p *Pool) TierCaptions(tier Tier) []string {
	return append([]string(nil), p.tiers[tier]...)
}

// CategoryOf returns the name of the category that contains caption, if any.
func (p *Pool) CategoryOf(caption string) (string, bool) {
	for _, c := range p.categories {
		for _, s := range c.Captions {
			if s == caption {
				return c.Name, true
			}
		}
	}
	return "", false
}

// Pick selects captions for an upload of size bytes.
// The first caption comes from the size tier. The rest come from distinct categories
// picked in random order until MaxCaptions is reached or every category was used once.
// Parameters:
//   - r: random source.
//   - size: uploaded file size in bytes.
// Returns:
//   - []string: between 1 and MaxCaptions captions.
func (p *Pool) Pick(r Rand, size int64) []string {
	tierList := p.tiers[TierFor(size)]
	out := make([]string, 0, MaxCaptions)
	out = append(out, tierList[r.IntN(len(tierList))])

	order := make([]int, len(p.categories))
	for i := range order {
		order[i] = i
	}
	for i := len(order) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		order[i], order[j] = order[j], order[i]
	}

	for _, idx := range order {
		if len(out) >= MaxCaptions {
			break
		}
		list := p.categories[idx].Captions
		out = append(out, list[r.IntN(len(list))])
	}
	return out
}

// Generator picks captions with a shared random source and is safe for concurrent use.
type Generator struct {
	pool *Pool
	mu   sync.Mutex
	rng  *rand.Rand
}

// NewGenerator creates a Generator.
// Parameters:
//   - pool: caption tables; nil uses DefaultPool.
//   - rng: random source; nil seeds one from the clock.
// Returns:
//   - *Generator: ready generator.
func NewGenerator(pool *Pool, rng *rand.Rand) *Generator {
	if pool == nil {
		pool = DefaultPool()
	}
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &Generator{pool: pool, rng: rng}
}

// Generate returns captions for an upload of size bytes.
func (g *Generator) Generate(size int64) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pool.Pick(g.rng, size)
}

// Pool returns the generator's caption tables.
func (g *Generator) Pool() *Pool {
	return g.pool
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
