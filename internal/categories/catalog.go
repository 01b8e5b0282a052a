// Package categories maps category names to their presentation keys.
package categories

import (
	"sort"
	"strings"

	"github.com/sbilibin2017/gw-transactions/internal/models"
)

// DefaultName is used when a transaction carries no category.
const DefaultName = "Other"

var defaults = []models.Category{
	{Name: "Food & Dining", Icon: "utensils", Color: "orange"},
	{Name: "Shopping", Icon: "shopping-cart", Color: "blue"},
	{Name: "Transportation", Icon: "bus", Color: "green"},
	{Name: "Entertainment", Icon: "film", Color: "purple"},
	{Name: "Utilities", Icon: "bolt", Color: "yellow"},
	{Name: "Healthcare", Icon: "heart", Color: "red"},
	{Name: "Housing", Icon: "home", Color: "indigo"},
	{Name: "Savings", Icon: "piggy-bank", Color: "emerald"},
	{Name: "Groceries", Icon: "shopping-bag", Color: "teal"},
	{Name: "Education", Icon: "book-open", Color: "sky"},
	{Name: "Travel", Icon: "plane", Color: "cyan"},
	{Name: "Gifts", Icon: "gift", Color: "pink"},
	{Name: "Income", Icon: "trending-up", Color: "green"},
	{Name: DefaultName, Icon: fallbackIcon, Color: fallbackColor},
}

// Catalog is an immutable name -> category lookup.
type Catalog struct {
	byName map[string]models.Category
}

// New creates a catalog from the given categories. With no arguments the built-in set is used.
func New(cats ...models.Category) *Catalog {
	if len(cats) == 0 {
		cats = defaults
	}
	c := &Catalog{byName: make(map[string]models.Category, len(cats))}
	for _, cat := range cats {
		c.byName[strings.ToLower(cat.Name)] = cat
	}
	return c
}

// Lookup returns the category with the given name, ignoring case and surrounding spaces.
func (c *Catalog) Lookup(name string) (models.Category, bool) {
	cat, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	return cat, ok
}

const (
	fallbackIcon  = "credit-card"
	fallbackColor = "gray"
)

// Resolve enriches a bare category name. A nil or blank name resolves to DefaultName.
func (c *Catalog) Resolve(name *string) (models.Category, error) {
	if name == nil || strings.TrimSpace(*name) == "" {
		return c.fallback(), nil
	}
	cat, ok := c.Lookup(*name)
	if !ok {
		return models.Category{}, models.NewValidationError("category", "unknown category "+strings.TrimSpace(*name))
	}
	return cat, nil
}

// ResolveOrDefault is Resolve for new transactions: an unknown name keeps its text and
// gets the fallback icon and color instead of failing.
func (c *Catalog) ResolveOrDefault(name *string) models.Category {
	if name == nil || strings.TrimSpace(*name) == "" {
		return c.fallback()
	}
	if cat, ok := c.Lookup(*name); ok {
		return cat
	}
	return models.Category{Name: strings.TrimSpace(*name), Icon: fallbackIcon, Color: fallbackColor}
}

func (c *Catalog) fallback() models.Category {
	if cat, ok := c.Lookup(DefaultName); ok {
		return cat
	}
	return models.Category{Name: DefaultName, Icon: fallbackIcon, Color: fallbackColor}
}

// Names returns the category names in alphabetical order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.byName))
	for _, cat := range c.byName {
		names = append(names, cat.Name)
	}
	sort.Strings(names)
	return names
}
