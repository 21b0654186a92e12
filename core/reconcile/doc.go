// Package reconcile matches entities discovered on a cloud platform against the
// managed objects already held in the inventory and merges them in.
//
// # Architecture
//
// A run is driven by the Orchestrator and composed of small components:
//
// 1. Filter: include/exclude name patterns per object category.
//
// 2. RelationResolver: ordered pattern rules that derive site, tenant, role,
//    platform and tags from entity names. Tag relations fan out to every
//    matching rule; other relations use the first match.
//
// 3. PrefixResolver: longest prefix lookup that supplies prefix lengths and the
//    VRF, VLAN and tenant context of addresses.
//
// 4. ObjectMatcher: identity resolution in three tiers (name within scope, MAC
//    address overlap, primary address equality).
//
// 5. PrimaryIPArbiter: keeps every primary address owned by a single object
//    under the always, when-undefined or never policy.
//
// # Phases
//
// Run processes a Source in a fixed order: availability zones become clusters
// and register their hosts, hypervisors become devices, volumes are recorded
// for disk sizing, and servers become virtual machines. All caches of a run
// live in a Session that is discarded when the run ends.
//
// # Errors
//
// Problems with single entities or addresses are logged and reported as
// EntityError values without stopping the run. A failing Source aborts the run
// with a SourceError.
//
// # Usage Example
//
//	settings, err := sourceConfig.Compile()
//	if err != nil {
//	    return err
//	}
//	o := reconcile.NewOrchestrator(settings, inv, log)
//	report, err := o.Run(ctx, source)
package reconcile
