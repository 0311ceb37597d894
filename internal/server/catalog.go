package server

import (
	"sort"
	"strings"

	"github.com/xonecas/typecast/internal/api"
	"github.com/xonecas/typecast/internal/config"
)

// Model categories reported to clients.
const (
	CategoryAdvanced    = "advanced"
	CategoryRecommended = "recommended"
	CategoryStable      = "stable"
)

// Classify derives a model's category from its id.
func Classify(id string) string {
	switch {
	case strings.Contains(strings.ToLower(id), "pro"):
		return CategoryAdvanced
	case strings.Contains(id, "2.0"), strings.Contains(id, "2.5"):
		return CategoryRecommended
	default:
		return CategoryStable
	}
}

// Catalog is the fixed list of models the server accepts.
type Catalog struct {
	models       []api.Model
	defaultModel string
}

// NewCatalog builds a catalog from configured model entries, sorted by id.
// The default model is added when it has no entry of its own.
func NewCatalog(entries map[string]config.ModelConfig, defaultModel string) *Catalog {
	c := &Catalog{defaultModel: defaultModel}
	for id, e := range entries {
		name := e.Name
		if name == "" {
			name = id
		}
		c.models = append(c.models, api.Model{
			ID:            id,
			Name:          name,
			Category:      Classify(id),
			Description:   e.Description,
			ContextWindow: e.ContextWindow,
		})
	}
	if defaultModel != "" {
		if _, ok := entries[defaultModel]; !ok {
			c.models = append(c.models, api.Model{ID: defaultModel, Name: defaultModel, Category: Classify(defaultModel)})
		}
	}
	sort.Slice(c.models, func(i, j int) bool { return c.models[i].ID < c.models[j].ID })
	return c
}

// List returns the catalog in its wire form.
func (c *Catalog) List() api.ModelList {
	models := make([]api.Model, len(c.models))
	copy(models, c.models)
	return api.ModelList{Models: models, DefaultModel: c.defaultModel}
}

// Has reports whether id is a known model.
func (c *Catalog) Has(id string) bool {
	for _, m := range c.models {
		if m.ID == id {
			return true
		}
	}
	return false
}

// IDs returns the known model ids.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.models))
	for i, m := range c.models {
		ids[i] = m.ID
	}
	return ids
}

// Default returns the model used when a request names none.
func (c *Catalog) Default() string {
	return c.defaultModel
}
