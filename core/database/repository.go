package database

import (
	"context"
	"fmt"

	"inventory-sync/core/inventory"

	"gorm.io/gorm"
)

// Models lists the inventory tables in dependency order.
func Models() []any {
	return []any{
		&inventory.Site{},
		&inventory.Tag{},
		&inventory.Role{},
		&inventory.ClusterGroup{},
		&inventory.Cluster{},
		&inventory.Machine{},
		&inventory.Interface{},
		&inventory.IPAddress{},
		&inventory.VLAN{},
		&inventory.Prefix{},
	}
}

// Migrate creates or extends the inventory tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate inventory schema: %w", err)
	}
	return nil
}

// Load reads the whole inventory.
func Load(ctx context.Context, db *gorm.DB) (*inventory.Inventory, error) {
	var s inventory.Snapshot
	tx := db.WithContext(ctx)
	tables := []struct {
		name string
		dst  any
	}{
		{"sites", &s.Sites},
		{"tags", &s.Tags},
		{"roles", &s.Roles},
		{"cluster groups", &s.ClusterGroups},
		{"clusters", &s.Clusters},
		{"machines", &s.Machines},
		{"interfaces", &s.Interfaces},
		{"ip addresses", &s.IPAddresses},
		{"vlans", &s.VLANs},
		{"prefixes", &s.Prefixes},
	}
	for _, table := range tables {
		if err := tx.Order("id").Find(table.dst).Error; err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", table.name, err)
		}
	}
	return inventory.FromSnapshot(s), nil
}

// SaveResult counts the rows written by Save.
type SaveResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

type tracked interface {
	IsNew() bool
	IsChanged() bool
}

// Save writes created and changed objects in one transaction and clears the
// change state of inv on success.
func Save(ctx context.Context, db *gorm.DB, inv *inventory.Inventory) (SaveResult, error) {
	var res SaveResult
	s := inv.Snapshot()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		steps := []func() error{
			func() error { return saveAll(tx, s.Sites, &res) },
			func() error { return saveAll(tx, s.Tags, &res) },
			func() error { return saveAll(tx, s.Roles, &res) },
			func() error { return saveAll(tx, s.ClusterGroups, &res) },
			func() error { return saveAll(tx, s.Clusters, &res) },
			func() error { return saveAll(tx, s.Machines, &res) },
			func() error { return saveAll(tx, s.Interfaces, &res) },
			func() error { return saveAll(tx, s.IPAddresses, &res) },
			func() error { return saveAll(tx, s.VLANs, &res) },
			func() error { return saveAll(tx, s.Prefixes, &res) },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return SaveResult{}, fmt.Errorf("failed to save inventory: %w", err)
	}
	inv.Commit()
	return res, nil
}

func saveAll[T tracked](tx *gorm.DB, rows []T, res *SaveResult) error {
	for _, row := range rows {
		switch {
		case row.IsNew():
			if err := tx.Create(row).Error; err != nil {
				return err
			}
			res.Created++
		case row.IsChanged():
			if err := tx.Save(row).Error; err != nil {
				return err
			}
			res.Updated++
		}
	}
	return nil
}
