package reconcile

import "context"

// Source defines the interface of a platform that entities are discovered from.
// Each call returns the full collection in the order the platform lists it;
// the orchestrator never asks for partial pages.
type Source interface {
	// Name returns the configured name of this source.
	Name() string

	// AvailabilityZones returns the availability zones including the service
	// hosts that belong to each zone. Zones become clusters.
	AvailabilityZones(ctx context.Context) ([]AvailabilityZone, error)

	// Hypervisors returns the compute hosts. Hosts become devices.
	Hypervisors(ctx context.Context) ([]Hypervisor, error)

	// Volumes returns the block storage volumes used to size VM disks.
	Volumes(ctx context.Context) ([]Volume, error)

	// Servers returns the virtual machines.
	Servers(ctx context.Context) ([]Server, error)
}

// AvailabilityZone is a raw availability zone record.
type AvailabilityZone struct {
	Name  string   `json:"name"`
	Hosts []string `json:"hosts"`
}

// Hypervisor is a raw compute host record.
type Hypervisor struct {
	// Name is the hypervisor hostname, possibly fully qualified.
	Name string `json:"name"`
	// ServiceHost is the short host name used in availability zone membership.
	ServiceHost string `json:"service_host"`
	// Status is "enabled" or "disabled".
	Status            string `json:"status"`
	HypervisorType    string `json:"hypervisor_type"`
	HypervisorVersion string `json:"hypervisor_version"`
	// HostIP is the management address without prefix length.
	HostIP string `json:"host_ip"`
	// MAC is the management interface MAC when the source knows it. The
	// compute API does not report one, so live hosts match by name or address.
	MAC string `json:"mac,omitempty"`
}

// Volume is a raw block storage volume record.
type Volume struct {
	ID string `json:"id"`
	// Size is the volume size in GB.
	Size int `json:"size"`
}

// Flavor is the sizing of a server.
type Flavor struct {
	OriginalName string `json:"original_name"`
	// RAM is the memory in MB.
	RAM   int `json:"ram"`
	VCPUs int `json:"vcpus"`
}

// ServerAddress is one address of a server on a network.
type ServerAddress struct {
	Addr    string `json:"addr"`
	Version int    `json:"version"`
	MAC     string `json:"mac"`
}

// ServerNetwork groups the addresses of a server on one network.
type ServerNetwork struct {
	Network   string          `json:"network"`
	Addresses []ServerAddress `json:"addresses"`
}

// Server is a raw virtual machine record.
type Server struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Status           string          `json:"status"`
	AvailabilityZone string          `json:"availability_zone"`
	Flavor           Flavor          `json:"flavor"`
	AttachedVolumes  []string        `json:"attached_volumes"`
	Networks         []ServerNetwork `json:"networks"`
}
