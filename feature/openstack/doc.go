// Package openstack provides the sources the reconciliation engine reads.
//
// Client talks to a live installation: it requests a keystone v3 token, looks
// up the public compute and volume endpoints in the catalog, and pages
// through availability zones, hypervisors, volumes and servers. Prefetch reads
// the four collections concurrently before a run.
//
// SnapshotSource serves the same collections from a JSON document in object
// storage, which allows replaying a captured installation:
//
//	{
//	  "availability_zones": [{"name": "nova", "hosts": ["compute1"]}],
//	  "hypervisors": [...],
//	  "volumes": [...],
//	  "servers": [...]
//	}
//
// NewSource picks the implementation from the source type.
package openstack
