// Package seed loads organization reference data (members, items,
// warehouses) from a YAML file into the database.
package seed

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/garyjia/erp-requisitions/internal/application/port"
	"github.com/garyjia/erp-requisitions/internal/domain/access"
	"github.com/garyjia/erp-requisitions/internal/domain/entity"
)

// Fixture is the reference data of one organization
type Fixture struct {
	Organization string      `mapstructure:"organization"`
	Members      []Member    `mapstructure:"members"`
	Items        []Item      `mapstructure:"items"`
	Warehouses   []Warehouse `mapstructure:"warehouses"`
}

// Member is a directory entry; Role is an optional explicit claim
type Member struct {
	ID         string `mapstructure:"id"`
	Name       string `mapstructure:"name"`
	Title      string `mapstructure:"title"`
	Role       string `mapstructure:"role"`
	LarkOpenID string `mapstructure:"lark_open_id"`
}

// Item is a catalog entry
type Item struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
	Unit string `mapstructure:"unit"`
}

// Warehouse is a fulfilment location
type Warehouse struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

// MemberWriter stores directory members
type MemberWriter interface {
	Upsert(ctx context.Context, m *entity.Member) error
}

// CatalogWriter stores items and warehouses
type CatalogWriter interface {
	UpsertItem(ctx context.Context, item *entity.Item) error
	UpsertWarehouse(ctx context.Context, wh *entity.Warehouse) error
}

// Summary counts what was written
type Summary struct {
	Members    int
	Items      int
	Warehouses int
}

// Load reads and validates a fixture file
func Load(path string) (*Fixture, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var f Fixture
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal seed file: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks ids and role claims before anything is written
func (f *Fixture) Validate() error {
	if strings.TrimSpace(f.Organization) == "" {
		return fmt.Errorf("%w: organization is required", entity.ErrValidation)
	}

	seen := make(map[string]bool)
	for i, m := range f.Members {
		if m.ID == "" {
			return fmt.Errorf("%w: members[%d] has no id", entity.ErrValidation, i)
		}
		if seen[m.ID] {
			return fmt.Errorf("%w: member %s listed twice", entity.ErrValidation, m.ID)
		}
		seen[m.ID] = true
		if m.Role != "" {
			if _, err := access.ParseRole(m.Role); err != nil {
				return fmt.Errorf("%w: member %s: %v", entity.ErrValidation, m.ID, err)
			}
		}
	}
	for i, item := range f.Items {
		if item.ID == "" {
			return fmt.Errorf("%w: items[%d] has no id", entity.ErrValidation, i)
		}
	}
	for i, wh := range f.Warehouses {
		if wh.ID == "" {
			return fmt.Errorf("%w: warehouses[%d] has no id", entity.ErrValidation, i)
		}
	}
	return nil
}

// Apply writes the fixture in one transaction
func Apply(ctx context.Context, f *Fixture, tx port.TransactionManager, members MemberWriter, catalog CatalogWriter) (Summary, error) {
	var summary Summary
	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		for _, m := range f.Members {
			if err := members.Upsert(ctx, &entity.Member{
				ID:             m.ID,
				OrganizationID: f.Organization,
				Name:           m.Name,
				Title:          m.Title,
				RoleClaim:      m.Role,
				LarkOpenID:     m.LarkOpenID,
			}); err != nil {
				return err
			}
			summary.Members++
		}
		for _, item := range f.Items {
			if err := catalog.UpsertItem(ctx, &entity.Item{
				ID:             item.ID,
				OrganizationID: f.Organization,
				Name:           item.Name,
				Unit:           item.Unit,
			}); err != nil {
				return err
			}
			summary.Items++
		}
		for _, wh := range f.Warehouses {
			if err := catalog.UpsertWarehouse(ctx, &entity.Warehouse{
				ID:             wh.ID,
				OrganizationID: f.Organization,
				Name:           wh.Name,
			}); err != nil {
				return err
			}
			summary.Warehouses++
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}
	return summary, nil
}
