// Package config loads the promotion catalog applied to new carts.
package config

import (
	"errors"
	"fmt"
	"github.com/nikolayk812/cartledger/internal/domain"
	"github.com/nikolayk812/cartledger/internal/port"
	"golang.org/x/text/currency"
	"gopkg.in/yaml.v3"
	"os"
	"strings"
)

const defaultCurrency = "EUR"

type Catalog struct {
	Currency   string      `yaml:"currency"`
	Promotions []Promotion `yaml:"promotions"`
}

// Promotion describes one rule. Exactly one of Percent and BuyNGetOne is set.
type Promotion struct {
	Code       string   `yaml:"code"`
	Reference  string   `yaml:"reference"`
	Percent    int      `yaml:"percent,omitempty"`
	MinPrice   *float64 `yaml:"min_price,omitempty"`
	BuyNGetOne int      `yaml:"buy_n_get_one,omitempty"`
	Active     bool     `yaml:"active"`
}

func DefaultCatalog() *Catalog {
	return &Catalog{Currency: defaultCurrency}
}

// Load reads a catalog from a YAML file. A missing file yields the default catalog.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultCatalog(), nil
		}
		return nil, fmt.Errorf("os.ReadFile: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	catalog := DefaultCatalog()

	if err := yaml.Unmarshal(data, catalog); err != nil {
		return nil, fmt.Errorf("yaml.Unmarshal: %w", err)
	}

	if err := catalog.validate(); err != nil {
		return nil, err
	}

	return catalog, nil
}

func (c *Catalog) CurrencyUnit() (currency.Unit, error) {
	unit, err := currency.ParseISO(c.Currency)
	if err != nil {
		return currency.Unit{}, fmt.Errorf("currency[%s] is not valid: %w", c.Currency, err)
	}
	return unit, nil
}

// Apply registers every promotion of the catalog and activates those marked active.
func (c *Catalog) Apply(registry port.PromotionRegistry) error {
	for _, p := range c.Promotions {
		var err error
		if p.BuyNGetOne != 0 {
			err = registry.RegisterBuyNGetOnePromotion(p.Code, p.Reference, p.BuyNGetOne)
		} else {
			var opts []domain.PromotionOption
			if p.MinPrice != nil {
				opts = append(opts, domain.WithMinPrice(*p.MinPrice))
			}
			err = registry.RegisterPromotion(p.Code, p.Reference, p.Percent, opts...)
		}
		if err != nil {
			return fmt.Errorf("promotion[%s]: %w", p.Code, err)
		}

		if p.Active && !registry.ActivatePromotion(p.Code) {
			return fmt.Errorf("promotion[%s]: activation refused", p.Code)
		}
	}

	return nil
}

func (c *Catalog) validate() error {
	if _, err := c.CurrencyUnit(); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(c.Promotions))
	for i, p := range c.Promotions {
		code := strings.TrimSpace(p.Code)
		if code == "" {
			return fmt.Errorf("promotions[%d]: code is empty", i)
		}
		if _, ok := seen[code]; ok {
			return fmt.Errorf("promotions[%d]: code %s is duplicated", i, code)
		}
		seen[code] = struct{}{}

		if (p.Percent == 0) == (p.BuyNGetOne == 0) {
			return fmt.Errorf("promotion[%s]: exactly one of percent and buy_n_get_one must be set", code)
		}
		if p.MinPrice != nil && p.BuyNGetOne != 0 {
			return fmt.Errorf("promotion[%s]: min_price only applies to percent promotions", code)
		}
	}

	return c.Apply(domain.NewCart())
}
