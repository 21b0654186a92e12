package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"inventory-sync/core/database"
	"inventory-sync/core/logger"
	"inventory-sync/core/reconcile"
	"inventory-sync/core/storage"
	"inventory-sync/feature/openstack"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const phasePrefetch = "prefetch"

var (
	// ErrUnknownSource is returned for a source name missing from the configuration.
	ErrUnknownSource = errors.New("unknown source")
	// ErrSourceDisabled is returned for a configured but disabled source.
	ErrSourceDisabled = errors.New("source disabled")
)

// SourceFactory builds the source collaborator for a configured source.
type SourceFactory func(cfg reconcile.SourceConfig) (reconcile.Source, error)

// Options control a single run.
type Options struct {
	// DryRun reconciles without writing the inventory back.
	DryRun bool `json:"dry_run"`
	// Upload stores the run report in object storage.
	Upload bool `json:"upload"`
}

// SourceStatus describes a configured source and its last run.
type SourceStatus struct {
	Name    string               `json:"name"`
	Type    string               `json:"type"`
	Enabled bool                 `json:"enabled"`
	LastRun *reconcile.RunReport `json:"last_run,omitempty"`
}

// Service runs sources against the inventory database.
type Service struct {
	db        *gorm.DB
	client    storage.Client
	storage   storage.Config
	sources   []reconcile.SourceConfig
	newSource SourceFactory
	cache     *reconcile.ReportCache
	logger    *zap.Logger

	// runs of different sources share one inventory and are serialised
	mu stdsync.Mutex
}

// NewService creates a sync service. client may be nil when object storage is
// not configured; reports are then kept in memory only.
func NewService(db *gorm.DB, client storage.Client, storageCfg storage.Config, sources []reconcile.SourceConfig, logger *zap.Logger) *Service {
	s := &Service{
		db:      db,
		client:  client,
		storage: storageCfg,
		sources: sources,
		cache:   reconcile.NewReportCache(),
		logger:  logger,
	}
	s.newSource = func(cfg reconcile.SourceConfig) (reconcile.Source, error) {
		return openstack.NewSource(cfg, client, storageCfg.Bucket, logger)
	}
	return s
}

// WithSourceFactory replaces how sources are built.
func (s *Service) WithSourceFactory(f SourceFactory) *Service {
	s.newSource = f
	return s
}

// Sources lists the configured sources in run order.
func (s *Service) Sources() []SourceStatus {
	out := make([]SourceStatus, 0, len(s.sources))
	for _, cfg := range s.sources {
		st := SourceStatus{Name: cfg.Name, Type: cfg.Type, Enabled: cfg.IsEnabled()}
		if r, ok := s.cache.Last(cfg.Name); ok {
			st.LastRun = r
		}
		out = append(out, st)
	}
	return out
}

// LastReport returns the report of the most recent run of source.
func (s *Service) LastReport(source string) (*reconcile.RunReport, bool) {
	return s.cache.Last(source)
}

func (s *Service) source(name string) (reconcile.SourceConfig, error) {
	for _, cfg := range s.sources {
		if cfg.Name == name {
			if !cfg.IsEnabled() {
				return cfg, fmt.Errorf("%w: %s", ErrSourceDisabled, name)
			}
			return cfg, nil
		}
	}
	return reconcile.SourceConfig{}, fmt.Errorf("%w: %s", ErrUnknownSource, name)
}

// Run reconciles one source. Concurrent calls for the same source and mode
// share a single run; shared reports whether that happened.
func (s *Service) Run(ctx context.Context, name string, opts Options) (report *reconcile.RunReport, shared bool, err error) {
	cfg, err := s.source(name)
	if err != nil {
		return nil, false, err
	}
	key := name
	if opts.DryRun {
		key += "#dry-run"
	}
	return s.cache.Do(ctx, key, func(ctx context.Context) (*reconcile.RunReport, error) {
		return s.run(ctx, cfg, opts)
	})
}

// RunAll runs every enabled source in configured order. A failing source is
// logged and the next one runs; the failures are joined into the returned error.
func (s *Service) RunAll(ctx context.Context, opts Options) ([]*reconcile.RunReport, error) {
	var reports []*reconcile.RunReport
	var errs []error
	for _, cfg := range s.sources {
		if !cfg.IsEnabled() {
			s.logger.Info("Skipping disabled source", zap.String("source", cfg.Name))
			continue
		}
		report, _, err := s.Run(ctx, cfg.Name, opts)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			s.logger.Error("Source run failed", zap.String("source", cfg.Name), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return reports, errors.Join(errs...)
}

func (s *Service) run(ctx context.Context, cfg reconcile.SourceConfig, opts Options) (*reconcile.RunReport, error) {
	settings, err := cfg.Compile()
	if err != nil {
		return nil, err
	}
	src, err := s.newSource(cfg)
	if err != nil {
		return nil, err
	}

	if p, ok := src.(openstack.Prefetcher); ok {
		if err := p.Prefetch(ctx); err != nil {
			return nil, &reconcile.SourceError{Source: cfg.Name, Phase: phasePrefetch, Err: err}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inv, err := database.Load(ctx, s.db)
	if err != nil {
		return nil, err
	}

	orch := reconcile.NewOrchestrator(settings, inv, s.logger.With(zap.String("source", cfg.Name)))
	report, runErr := orch.Run(ctx, src)
	report.DryRun = opts.DryRun
	log := logger.WithRun(s.logger, report.ID, cfg.Name)

	if runErr != nil {
		log.Warn("Run aborted, keeping changes of completed steps", zap.Error(runErr))
	}
	if opts.DryRun {
		created, changed := inv.Pending()
		log.Info("Dry run, inventory not written", zap.Int("pending_created", created), zap.Int("pending_changed", changed))
	} else {
		res, err := database.Save(ctx, s.db, inv)
		if err != nil {
			if report.Error == "" {
				report.Error = err.Error()
			}
			return report, errors.Join(runErr, err)
		}
		log.Info("Inventory saved", zap.Int("created", res.Created), zap.Int("updated", res.Updated))
	}

	if opts.Upload {
		s.upload(ctx, report, log)
	}
	return report, runErr
}

// upload stores the report and prunes old reports of the same source. Failures
// are logged only, the run itself already succeeded or failed.
func (s *Service) upload(ctx context.Context, report *reconcile.RunReport, log *zap.Logger) {
	if s.client == nil {
		log.Warn("Object storage not configured, report not uploaded")
		return
	}
	prefix := ReportPrefix(s.storage.ReportPrefix, report.Source)
	key := prefix + report.Started.Format("20060102T150405Z") + "-" + report.ID + ".json"
	if err := storage.PutJSON(ctx, s.client, s.storage.Bucket, key, report); err != nil {
		log.Error("Failed to upload report", zap.Error(err))
		return
	}
	log.Info("Report uploaded", zap.String("key", key))

	removed, err := storage.Prune(ctx, s.client, s.storage.Bucket, prefix, s.storage.KeepReports)
	if err != nil {
		log.Warn("Failed to prune old reports", zap.Int("removed", removed), zap.Error(err))
		return
	}
	if removed > 0 {
		log.Debug("Pruned old reports", zap.Int("removed", removed))
	}
}

// ReportPrefix is the key prefix of the reports of source.
func ReportPrefix(base, source string) string {
	return base + source + "/"
}

// runTimeout bounds HTTP triggered runs.
func runTimeout(seconds int) time.Duration {
	if seconds <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(seconds) * time.Second
}
