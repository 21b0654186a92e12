package database

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ColumnInfo matches the output of SHOW COLUMNS.
type ColumnInfo struct {
	Field   string
	Type    string
	Null    string
	Key     string
	Default *string
	Extra   string
}

// GetTableColumns retrieves the column definitions for a given table.
// A missing table yields no columns.
func GetTableColumns(db *gorm.DB, tableName string) ([]ColumnInfo, error) {
	var columns []ColumnInfo
	if db.Dialector.Name() == DriverSQLite {
		type sqliteColumn struct {
			Cid        int
			Name       string
			Type       string
			Notnull    int
			DefaultVal *string `gorm:"column:dflt_value"`
			Pk         int
		}
		var sqliteCols []sqliteColumn
		if err := db.Raw(fmt.Sprintf("PRAGMA table_info('%s')", tableName)).Scan(&sqliteCols).Error; err != nil {
			return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
		}
		for _, col := range sqliteCols {
			columns = append(columns, ColumnInfo{
				Field: strings.ToLower(col.Name),
				Type:  strings.ToLower(col.Type),
			})
		}
		return columns, nil
	}

	err := db.Raw(fmt.Sprintf("SHOW COLUMNS FROM `%s`", tableName)).Scan(&columns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
	}
	for i := range columns {
		columns[i].Type = strings.ToLower(columns[i].Type)
		columns[i].Field = strings.ToLower(columns[i].Field)
	}
	return columns, nil
}

// SchemaIssue describes a table or column the inventory models expect but the
// database lacks.
type SchemaIssue struct {
	Table  string `json:"table"`
	Column string `json:"column,omitempty"`
}

func (i SchemaIssue) String() string {
	if i.Column == "" {
		return fmt.Sprintf("table %s is missing", i.Table)
	}
	return fmt.Sprintf("column %s.%s is missing", i.Table, i.Column)
}

// CheckSchema compares the inventory models with the live schema and lists
// every missing table and column.
func CheckSchema(db *gorm.DB) ([]SchemaIssue, error) {
	var issues []SchemaIssue
	for _, model := range Models() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("failed to parse model %T: %w", model, err)
		}
		table := stmt.Schema.Table

		columns, err := GetTableColumns(db, table)
		if err != nil {
			return nil, err
		}
		if len(columns) == 0 {
			issues = append(issues, SchemaIssue{Table: table})
			continue
		}
		present := make(map[string]bool, len(columns))
		for _, c := range columns {
			present[c.Field] = true
		}
		for _, field := range stmt.Schema.Fields {
			if field.DBName == "" || present[strings.ToLower(field.DBName)] {
				continue
			}
			issues = append(issues, SchemaIssue{Table: table, Column: field.DBName})
		}
	}
	return issues, nil
}
