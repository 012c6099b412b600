package features

import (
	"bytes"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"dzemat/internal/platform/models"
)

const (
	ModuleTasks       = "tasks"
	ModuleShop        = "shop"
	ModuleActivityLog = "activity-log"
	ModuleProjects    = "projects"
)

//go:embed plans.yaml
var defaultPlans []byte

type Plan struct {
	Slug            models.SubscriptionTier `yaml:"slug" json:"slug"`
	Name            string                  `yaml:"name" json:"name"`
	Description     string                  `yaml:"description" json:"description"`
	PriceMonthly    string                  `yaml:"price_monthly" json:"priceMonthly"`
	PriceYearly     string                  `yaml:"price_yearly" json:"priceYearly"`
	Currency        string                  `yaml:"currency" json:"currency"`
	EnabledModules  []string                `yaml:"enabled_modules" json:"enabledModules"`
	ReadOnlyModules []string                `yaml:"read_only_modules" json:"readOnlyModules"`
	MaxUsers        *int                    `yaml:"max_users" json:"maxUsers"`       // nil: unlimited
	MaxStorageMB    *int                    `yaml:"max_storage_mb" json:"maxStorage"` // nil: unlimited
}

func (p *Plan) Enables(module string) bool {
	return contains(p.EnabledModules, module)
}

func (p *Plan) Previews(module string) bool {
	return contains(p.ReadOnlyModules, module)
}

// Catalog is the ordered plan table, lowest tier first.
type Catalog struct {
	Tiers        []Plan            `yaml:"tiers"`
	DisplayNames map[string]string `yaml:"display_names"`
}

// DefaultCatalog returns the built-in plan table.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultPlans)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseCatalog decodes and validates a plan table.
func ParseCatalog(data []byte) (*Catalog, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("plans: catalog is empty")
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("plans: decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate requires every known tier exactly once and that each tier enables
// every module of the tier below it.
func (c *Catalog) Validate() error {
	want := []models.SubscriptionTier{models.TierBasic, models.TierStandard, models.TierFull}
	if len(c.Tiers) != len(want) {
		return fmt.Errorf("plans: expected %d tiers, got %d", len(want), len(c.Tiers))
	}
	for i, tier := range want {
		if c.Tiers[i].Slug != tier {
			return fmt.Errorf("plans: tier %d is %q, want %q", i, c.Tiers[i].Slug, tier)
		}
	}
	for i := 1; i < len(c.Tiers); i++ {
		lower, upper := &c.Tiers[i-1], &c.Tiers[i]
		for _, module := range lower.EnabledModules {
			if !upper.Enables(module) {
				return fmt.Errorf("plans: %s enables %q but %s does not", lower.Slug, module, upper.Slug)
			}
		}
	}
	return nil
}

func (c *Catalog) Plan(tier models.SubscriptionTier) (*Plan, bool) {
	for i := range c.Tiers {
		if c.Tiers[i].Slug == tier {
			return &c.Tiers[i], true
		}
	}
	return nil, false
}

// RequiredTier returns the lowest tier enabling module, or full when none does.
func (c *Catalog) RequiredTier(module string) models.SubscriptionTier {
	for i := range c.Tiers {
		if c.Tiers[i].Enables(module) {
			return c.Tiers[i].Slug
		}
	}
	return models.TierFull
}

func (c *Catalog) DisplayName(module string) string {
	if name, ok := c.DisplayNames[module]; ok {
		return name
	}
	return module
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
