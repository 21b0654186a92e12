package reconcile

import (
	"fmt"
	"regexp"
	"strings"
)

// Source types.
const (
	SourceTypeOpenStack = "openstack"
	SourceTypeSnapshot  = "snapshot"
)

// RelationConfig is one configured relation rule.
type RelationConfig struct {
	// ObjectRegex is matched against the start of the object name.
	ObjectRegex string `mapstructure:"object_regex" yaml:"object_regex" json:"object_regex"`
	// AssignedName is the value assigned on match.
	AssignedName string `mapstructure:"assigned_name" yaml:"assigned_name" json:"assigned_name"`
}

// SourceConfig holds configuration for one source platform.
// Values are read from the sources list of config.yaml.
type SourceConfig struct {
	Name     string `mapstructure:"name" yaml:"name,omitempty"`
	Type     string `mapstructure:"type" yaml:"type,omitempty" default:"openstack"`
	Enabled  *bool  `mapstructure:"enabled" yaml:"enabled,omitempty"`
	AuthURL  string `mapstructure:"auth_url" yaml:"auth_url,omitempty"`
	Project  string `mapstructure:"project" yaml:"project,omitempty"`
	Username string `mapstructure:"username" yaml:"username,omitempty"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	Region   string `mapstructure:"region" yaml:"region,omitempty"`
	// UserDomain is the keystone domain of the user.
	UserDomain string `mapstructure:"user_domain" yaml:"user_domain,omitempty" default:"Default"`
	// ProjectDomain is the keystone domain of the project.
	ProjectDomain    string `mapstructure:"project_domain" yaml:"project_domain,omitempty" default:"Default"`
	ValidateTLSCerts *bool  `mapstructure:"validate_tls_certs" yaml:"validate_tls_certs,omitempty"`
	TimeoutSeconds   int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds,omitempty" default:"60"`
	// SnapshotObject is the object key read by snapshot sources.
	SnapshotObject string `mapstructure:"snapshot_object" yaml:"snapshot_object,omitempty"`

	GroupName        string   `mapstructure:"group_name" yaml:"group_name,omitempty" default:"OpenStack"`
	PermittedSubnets []string `mapstructure:"permitted_subnets" yaml:"permitted_subnets,omitempty"`

	ClusterIncludeFilter string `mapstructure:"cluster_include_filter" yaml:"cluster_include_filter,omitempty"`
	ClusterExcludeFilter string `mapstructure:"cluster_exclude_filter" yaml:"cluster_exclude_filter,omitempty"`
	HostIncludeFilter    string `mapstructure:"host_include_filter" yaml:"host_include_filter,omitempty"`
	HostExcludeFilter    string `mapstructure:"host_exclude_filter" yaml:"host_exclude_filter,omitempty"`
	VMIncludeFilter      string `mapstructure:"vm_include_filter" yaml:"vm_include_filter,omitempty"`
	VMExcludeFilter      string `mapstructure:"vm_exclude_filter" yaml:"vm_exclude_filter,omitempty"`

	ClusterSiteRelation   []RelationConfig `mapstructure:"cluster_site_relation" yaml:"cluster_site_relation,omitempty"`
	ClusterTenantRelation []RelationConfig `mapstructure:"cluster_tenant_relation" yaml:"cluster_tenant_relation,omitempty"`
	HostRoleRelation      []RelationConfig `mapstructure:"host_role_relation" yaml:"host_role_relation,omitempty"`
	HostSiteRelation      []RelationConfig `mapstructure:"host_site_relation" yaml:"host_site_relation,omitempty"`
	HostTagRelation       []RelationConfig `mapstructure:"host_tag_relation" yaml:"host_tag_relation,omitempty"`
	HostTenantRelation    []RelationConfig `mapstructure:"host_tenant_relation" yaml:"host_tenant_relation,omitempty"`
	VMPlatformRelation    []RelationConfig `mapstructure:"vm_platform_relation" yaml:"vm_platform_relation,omitempty"`
	VMRoleRelation        []RelationConfig `mapstructure:"vm_role_relation" yaml:"vm_role_relation,omitempty"`
	VMTagRelation         []RelationConfig `mapstructure:"vm_tag_relation" yaml:"vm_tag_relation,omitempty"`
	VMTenantRelation      []RelationConfig `mapstructure:"vm_tenant_relation" yaml:"vm_tenant_relation,omitempty"`

	SetPrimaryIP        string  `mapstructure:"set_primary_ip" yaml:"set_primary_ip,omitempty" default:"when-undefined"`
	SkipVMComments      bool    `mapstructure:"skip_vm_comments" yaml:"skip_vm_comments,omitempty"`
	SkipVMPlatform      bool    `mapstructure:"skip_vm_platform" yaml:"skip_vm_platform,omitempty"`
	StripHostDomainName bool    `mapstructure:"strip_host_domain_name" yaml:"strip_host_domain_name,omitempty"`
	StripVMDomainName   bool    `mapstructure:"strip_vm_domain_name" yaml:"strip_vm_domain_name,omitempty"`
	SetVMNameToUUID     bool    `mapstructure:"set_vm_name_to_uuid" yaml:"set_vm_name_to_uuid,omitempty"`
	MACMatchRatio       float64 `mapstructure:"mac_match_ratio" yaml:"mac_match_ratio,omitempty" default:"2.0"`
}

// IsEnabled reports whether the source takes part in sync runs. Sources are
// enabled unless switched off explicitly.
func (c SourceConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// VerifyTLS reports whether TLS certificates of the source are validated.
func (c SourceConfig) VerifyTLS() bool {
	return c.ValidateTLSCerts == nil || *c.ValidateTLSCerts
}

// Settings is the validated, compiled form of a SourceConfig used during a run.
type Settings struct {
	Name      string
	AuthURL   string
	GroupName string

	ClusterFilter Filter
	HostFilter    Filter
	VMFilter      Filter

	Relations map[string]RelationTable

	PrimaryIP        PrimaryIPPolicy
	PermittedSubnets *SubnetPolicy
	MACMatchRatio    float64

	SkipVMComments      bool
	SkipVMPlatform      bool
	StripHostDomainName bool
	StripVMDomainName   bool
	SetVMNameToUUID     bool
}

// DefaultSiteName is the site assigned to objects without a site relation.
func (s *Settings) DefaultSiteName() string {
	return "OpenStack: " + s.Name
}

// SourceTag is the tag applied to every object touched by this source.
func (s *Settings) SourceTag() string {
	return "Source: " + s.Name
}

// Compile validates the configuration and compiles patterns and policies.
func (c SourceConfig) Compile() (*Settings, error) {
	if strings.TrimSpace(c.Name) == "" {
		return nil, fmt.Errorf("source name is required")
	}
	switch c.Type {
	case SourceTypeOpenStack, SourceTypeSnapshot, "":
	default:
		return nil, fmt.Errorf("source %s: unknown type %q", c.Name, c.Type)
	}

	s := &Settings{
		Name:                c.Name,
		AuthURL:             c.AuthURL,
		GroupName:           c.GroupName,
		MACMatchRatio:       c.MACMatchRatio,
		SkipVMComments:      c.SkipVMComments,
		SkipVMPlatform:      c.SkipVMPlatform,
		StripHostDomainName: c.StripHostDomainName,
		StripVMDomainName:   c.StripVMDomainName,
		SetVMNameToUUID:     c.SetVMNameToUUID,
		Relations:           make(map[string]RelationTable),
	}
	if s.GroupName == "" {
		s.GroupName = "OpenStack"
	}
	if s.MACMatchRatio <= 0 {
		s.MACMatchRatio = DefaultMACMatchRatio
	}

	policy, err := ParsePrimaryIPPolicy(c.SetPrimaryIP)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", c.Name, err)
	}
	s.PrimaryIP = policy

	filters := []struct {
		dst              *Filter
		include, exclude string
	}{
		{&s.ClusterFilter, c.ClusterIncludeFilter, c.ClusterExcludeFilter},
		{&s.HostFilter, c.HostIncludeFilter, c.HostExcludeFilter},
		{&s.VMFilter, c.VMIncludeFilter, c.VMExcludeFilter},
	}
	for _, f := range filters {
		compiled, err := NewFilter(f.include, f.exclude)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", c.Name, err)
		}
		*f.dst = compiled
	}

	relations := map[string][]RelationConfig{
		RelationClusterSite:   c.ClusterSiteRelation,
		RelationClusterTenant: c.ClusterTenantRelation,
		RelationHostRole:      c.HostRoleRelation,
		RelationHostSite:      c.HostSiteRelation,
		RelationHostTag:       c.HostTagRelation,
		RelationHostTenant:    c.HostTenantRelation,
		RelationVMPlatform:    c.VMPlatformRelation,
		RelationVMRole:        c.VMRoleRelation,
		RelationVMTag:         c.VMTagRelation,
		RelationVMTenant:      c.VMTenantRelation,
	}
	for name, rules := range relations {
		table, err := NewRelationTable(name, rules)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", c.Name, err)
		}
		s.Relations[name] = table
	}

	s.PermittedSubnets, err = NewSubnetPolicy(c.PermittedSubnets)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", c.Name, err)
	}

	return s, nil
}

// anchored compiles pattern so that it only matches at the start of a name.
func anchored(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("^(?:" + pattern + ")")
}
