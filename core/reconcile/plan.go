package reconcile

import (
	"context"
	"fmt"
	"time"

	"inventory-sync/core/inventory"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Phases of a run. They always execute in this order: VMs are placed on
// clusters and hosts registered by the first phase, and sized by volumes
// registered in the second.
const (
	PhaseClusters = "clusters"
	PhaseHosts    = "hosts"
	PhaseVolumes  = "volumes"
	PhaseServers  = "servers"
)

// Run reconciles everything src reports into the store. A failure to query
// the source aborts the run with a *SourceError; mutations applied before the
// failure stay in the store. The report is returned in both cases.
func (o *Orchestrator) Run(ctx context.Context, src Source) (*RunReport, error) {
	report := &RunReport{
		ID:      uuid.NewString(),
		Source:  o.settings.Name,
		Started: time.Now().UTC(),
	}
	o.reset(report)
	log := o.log.With(zap.String("run_id", report.ID))
	log.Info("Starting reconciliation run")

	err := o.runPhases(ctx, src)
	if err == nil {
		o.updateBasicData()
		report.Summary.Devices = len(o.store.Tagged(inventory.TypeDevice, o.settings.SourceTag()))
		report.Summary.VirtualMachines = len(o.store.Tagged(inventory.TypeVM, o.settings.SourceTag()))
	} else {
		report.Error = err.Error()
	}
	report.Finished = time.Now().UTC()

	log.Info("Reconciliation run finished",
		zap.Int("clusters", report.Summary.Clusters),
		zap.Int("created", report.Summary.Created),
		zap.Int("updated", report.Summary.Updated),
		zap.Int("skipped", report.Summary.Skipped),
		zap.Int("errors", report.Summary.Errors),
		zap.Int("devices", report.Summary.Devices),
		zap.Int("virtual_machines", report.Summary.VirtualMachines),
		zap.Duration("duration", report.Finished.Sub(report.Started)),
		zap.Error(err))
	return report, err
}

func (o *Orchestrator) runPhases(ctx context.Context, src Source) error {
	zones, err := src.AvailabilityZones(ctx)
	if err != nil {
		return o.sourceError(PhaseClusters, err)
	}
	for _, az := range zones {
		o.AddCluster(az)
	}

	hosts, err := src.Hypervisors(ctx)
	if err != nil {
		return o.sourceError(PhaseHosts, err)
	}
	for _, h := range hosts {
		o.AddHost(h)
	}

	volumes, err := src.Volumes(ctx)
	if err != nil {
		return o.sourceError(PhaseVolumes, err)
	}
	for _, v := range volumes {
		o.AddVolume(v)
	}

	servers, err := src.Servers(ctx)
	if err != nil {
		return o.sourceError(PhaseServers, err)
	}
	for _, s := range servers {
		o.AddVirtualMachine(s)
	}
	return nil
}

func (o *Orchestrator) sourceError(phase string, err error) error {
	return &SourceError{Source: o.settings.Name, Phase: phase, Err: err}
}

// updateBasicData makes sure the objects every run relies on exist: the
// source tag, the comment on the default site and the vm flag of the default role.
func (o *Orchestrator) updateBasicData() {
	o.store.EnsureTag(o.settings.SourceTag(), fmt.Sprintf(
		"Marks objects synced from OpenStack '%s' (%s) to this inventory.",
		o.settings.Name, o.settings.AuthURL))

	if site := o.store.Site(o.settings.DefaultSiteName()); site != nil {
		o.store.SetSiteComments(site, "A default virtual site created to house objects "+
			"that have been synced from this OpenStack instance "+
			"and have no predefined site assigned.")
	}

	if role := o.store.Role(defaultRole); role != nil {
		color := ""
		if role.IsNew() {
			color = defaultRoleColor
		}
		o.store.EnsureRole(defaultRole, color, true)
	}
}
