package reconcile

import (
	"slices"

	"inventory-sync/core/inventory"
)

// Session holds the state of one reconciliation run. It is created when a run
// starts and discarded when it ends.
type Session struct {
	// clusters caches clusters by name.
	clusters map[string]*inventory.Cluster
	// permitted maps the name of every cluster that passed the filter to its site.
	permitted map[string]string
	// clusterHosts maps a cluster name to its member host names.
	clusterHosts map[string][]string
	// clusterOrder keeps the order clusters were added in.
	clusterOrder []string
	// volumes maps a volume id to its size in GB.
	volumes map[string]int
	// hostNames and vmNames register processed names per site and per cluster.
	hostNames map[string]map[string]struct{}
	vmNames   map[string]map[string]struct{}

	report *RunReport
}

func newSession(report *RunReport) *Session {
	return &Session{
		clusters:     make(map[string]*inventory.Cluster),
		permitted:    make(map[string]string),
		clusterHosts: make(map[string][]string),
		volumes:      make(map[string]int),
		hostNames:    make(map[string]map[string]struct{}),
		vmNames:      make(map[string]map[string]struct{}),
		report:       report,
	}
}

func (s *Session) addCluster(c *inventory.Cluster, hosts []string, site string) {
	if _, ok := s.clusterHosts[c.Name]; !ok {
		s.clusterOrder = append(s.clusterOrder, c.Name)
	}
	s.clusters[c.Name] = c
	s.clusterHosts[c.Name] = slices.Clone(hosts)
	s.permitted[c.Name] = site
}

// clusterForHost returns the first cluster, in insertion order, listing host.
func (s *Session) clusterForHost(host string) string {
	for _, name := range s.clusterOrder {
		if slices.Contains(s.clusterHosts[name], host) {
			return name
		}
	}
	return ""
}

func (s *Session) permittedSite(cluster string) (string, bool) {
	site, ok := s.permitted[cluster]
	return site, ok
}

// claimName registers name in scope and reports whether it was free.
func claimName(registry map[string]map[string]struct{}, scope, name string) bool {
	names, ok := registry[scope]
	if !ok {
		names = make(map[string]struct{})
		registry[scope] = names
	}
	if _, taken := names[name]; taken {
		return false
	}
	names[name] = struct{}{}
	return true
}
