package reconcile

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Relation table names.
const (
	RelationClusterSite   = "cluster_site_relation"
	RelationClusterTenant = "cluster_tenant_relation"
	RelationHostRole      = "host_role_relation"
	RelationHostSite      = "host_site_relation"
	RelationHostTag       = "host_tag_relation"
	RelationHostTenant    = "host_tenant_relation"
	RelationVMPlatform    = "vm_platform_relation"
	RelationVMRole        = "vm_role_relation"
	RelationVMTag         = "vm_tag_relation"
	RelationVMTenant      = "vm_tenant_relation"
)

// RelationRule assigns Value to names matching Pattern.
type RelationRule struct {
	Pattern *regexp.Regexp
	Value   string
	source  string
}

// RelationTable is an ordered list of rules for one relation category.
type RelationTable struct {
	Name  string
	Rules []RelationRule
}

// NewRelationTable compiles the configured rules in order.
func NewRelationTable(name string, rules []RelationConfig) (RelationTable, error) {
	t := RelationTable{Name: name}
	for _, r := range rules {
		if r.ObjectRegex == "" || r.AssignedName == "" {
			return RelationTable{}, fmt.Errorf("%s: rule needs object_regex and assigned_name", name)
		}
		re, err := anchored(r.ObjectRegex)
		if err != nil {
			return RelationTable{}, fmt.Errorf("%s: invalid regex %q: %w", name, r.ObjectRegex, err)
		}
		t.Rules = append(t.Rules, RelationRule{Pattern: re, Value: r.AssignedName, source: r.ObjectRegex})
	}
	return t, nil
}

func (t RelationTable) category() (string, string) {
	parts := strings.SplitN(t.Name, "_", 3)
	if len(parts) < 2 {
		return t.Name, ""
	}
	return parts[0], parts[1]
}

// IsTagCategory reports whether the table assigns tags, which fan out.
func (t RelationTable) IsTagCategory() bool {
	_, attr := t.category()
	return attr == "tag"
}

// IsClusterCategory reports whether names of this table may be hierarchical.
func (t RelationTable) IsClusterCategory() bool {
	obj, _ := t.category()
	return obj == "cluster"
}

// Matches returns the values of all rules matching name, in rule order. For
// cluster tables a name with a "/" path is retried without its first segment
// when no rule matched the full name.
func (t RelationTable) Matches(name string) []string {
	values := t.match(name)
	if len(values) == 0 && t.IsClusterCategory() {
		if _, stripped, ok := strings.Cut(name, "/"); ok {
			values = t.match(stripped)
		}
	}
	return values
}

func (t RelationTable) match(name string) []string {
	var values []string
	for _, r := range t.Rules {
		if r.Pattern.MatchString(name) {
			values = append(values, r.Value)
		}
	}
	return values
}

// RelationResolver resolves attribute values for entity names from the
// relation tables of a source.
type RelationResolver struct {
	tables map[string]RelationTable
	log    *zap.Logger
}

// NewRelationResolver returns a resolver over the given tables.
func NewRelationResolver(tables map[string]RelationTable, log *zap.Logger) *RelationResolver {
	return &RelationResolver{tables: tables, log: log}
}

// Value returns the first value matched in relation, or fallback when nothing
// matched. Several matches are logged with the chosen value.
func (r *RelationResolver) Value(name, relation, fallback string) string {
	values := r.tables[relation].Matches(name)
	if len(values) == 0 {
		return fallback
	}
	if len(values) > 1 {
		r.log.Debug("Several relation rules matched, using first",
			zap.String("relation", relation),
			zap.String("name", name),
			zap.Int("matches", len(values)),
			zap.String("value", values[0]))
	}
	return values[0]
}

// Tags returns every value matched in a tag relation.
func (r *RelationResolver) Tags(name, relation string) []string {
	return r.tables[relation].Matches(name)
}

// Resolve dispatches on the category: tag relations return all matches,
// other relations at most one value (or the fallback).
func (r *RelationResolver) Resolve(name, relation, fallback string) []string {
	if (RelationTable{Name: relation}).IsTagCategory() {
		return r.Tags(name, relation)
	}
	if v := r.Value(name, relation, fallback); v != "" {
		return []string{v}
	}
	return nil
}
