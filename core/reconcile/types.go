package reconcile

import "time"

// Action is the outcome of reconciling one entity.
type Action string

const (
	// ActionCreated means a new object was added to the inventory.
	ActionCreated Action = "created"
	// ActionUpdated means an existing object was matched and updated.
	ActionUpdated Action = "updated"
	// ActionSkipped means the entity was left out of this run.
	ActionSkipped Action = "skipped"
)

// EntityResult represents the reconciliation output for a single entity.
type EntityResult struct {
	// ObjectType is the kind of inventory object (cluster, device, virtual_machine).
	ObjectType string `json:"object_type"`

	// Name is the name of the entity after domain stripping and renaming.
	Name string `json:"name"`

	// Scope is the site or cluster the name is unique in.
	Scope string `json:"scope,omitempty"`

	// Action is what happened to the entity.
	Action Action `json:"action"`

	// MatchedBy is the tier that found an existing object, empty on create or skip.
	MatchedBy MatchTier `json:"matched_by,omitempty"`

	// Reason explains a skip.
	Reason string `json:"reason,omitempty"`

	// Warnings collects per-address problems that did not stop the entity.
	Warnings []string `json:"warnings,omitempty"`
}

// RunSummary provides aggregate counts for a run.
type RunSummary struct {
	// Clusters counts clusters created or updated.
	Clusters int `json:"clusters"`

	// Created counts new devices and virtual machines.
	Created int `json:"created"`

	// Updated counts matched devices and virtual machines.
	Updated int `json:"updated"`

	// Skipped counts entities left out of the run.
	Skipped int `json:"skipped"`

	// Errors counts entities or addresses dropped because of an error.
	Errors int `json:"errors"`

	// Volumes counts volumes recorded for disk sizing.
	Volumes int `json:"volumes"`

	// Devices and VirtualMachines count the objects carrying the source tag
	// after a complete run.
	Devices         int `json:"devices"`
	VirtualMachines int `json:"virtual_machines"`
}

// RunReport is the outcome of one reconciliation run of one source.
type RunReport struct {
	// ID is the unique identifier of the run.
	ID string `json:"id"`

	// Source is the configured source name.
	Source string `json:"source"`

	// DryRun is set when the inventory was not written back.
	DryRun bool `json:"dry_run"`

	// Started and Finished bound the run.
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`

	// Error is set when the run was aborted.
	Error string `json:"error,omitempty"`

	// Summary provides aggregate counts.
	Summary RunSummary `json:"summary"`

	// Results contains per-entity outcomes in processing order.
	Results []EntityResult `json:"results"`
}

func (r *RunReport) add(res EntityResult) {
	switch res.Action {
	case ActionCreated:
		if res.ObjectType == objectCluster {
			r.Summary.Clusters++
		} else {
			r.Summary.Created++
		}
	case ActionUpdated:
		if res.ObjectType == objectCluster {
			r.Summary.Clusters++
		} else {
			r.Summary.Updated++
		}
	case ActionSkipped:
		r.Summary.Skipped++
	}
	r.Summary.Errors += len(res.Warnings)
	r.Results = append(r.Results, res)
}
