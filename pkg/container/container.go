// Package container wires calchat services using go.uber.org/dig.
package container

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.uber.org/dig"

	"github.com/soypete/calchat/pkg/calcom"
	"github.com/soypete/calchat/pkg/chat"
	"github.com/soypete/calchat/pkg/config"
	"github.com/soypete/calchat/pkg/database"
	"github.com/soypete/calchat/pkg/executor"
	"github.com/soypete/calchat/pkg/httpbridge"
	"github.com/soypete/calchat/pkg/llm"
	"github.com/soypete/calchat/pkg/prompts"
	"github.com/soypete/calchat/pkg/tools"
)

// Container holds the resolved service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	cfg      *config.Config
	catalog  *tools.Catalog
	provider calcom.Provider
	chat     *chat.Orchestrator
	server   *httpbridge.Server
	audit    auditLog
}

func (c *Container) Config() *config.Config           { return c.cfg }
func (c *Container) Catalog() *tools.Catalog          { return c.catalog }
func (c *Container) Provider() calcom.Provider        { return c.provider }
func (c *Container) Orchestrator() *chat.Orchestrator { return c.chat }
func (c *Container) Server() *httpbridge.Server       { return c.server }

// AuditStore is nil unless the audit log is enabled.
func (c *Container) AuditStore() *database.AuditStore { return c.audit.store }

// Pruner is nil unless the audit log is enabled.
func (c *Container) Pruner() *database.Pruner { return c.audit.pruner }

// Close releases the audit database, if one was opened.
func (c *Container) Close() error {
	if c.audit.db == nil {
		return nil
	}
	return c.audit.db.Close()
}

// auditLog groups the optional audit components; all fields are nil when disabled.
type auditLog struct {
	db     *database.DB
	store  *database.AuditStore
	pruner *database.Pruner
}

type options struct {
	planner  llm.Planner
	provider calcom.Provider
	version  string
}

// Option overrides a wired component
type Option func(*options)

// WithPlanner replaces the configured planner backend.
func WithPlanner(p llm.Planner) Option {
	return func(o *options) { o.planner = p }
}

// WithProvider replaces the Cal.com client.
func WithProvider(p calcom.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithVersion sets the version reported by the HTTP API.
func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// New builds and wires all services from cfg. The context bounds opening
// and migrating the audit database.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Container, error) {
	o := options{version: httpbridge.DefaultVersion}
	for _, opt := range opts {
		opt(&o)
	}

	d := dig.New()
	providers := []interface{}{
		func() *config.Config { return cfg },
		tools.NewCatalog,
		func(cfg *config.Config) (calcom.Provider, error) { return newProvider(cfg, o.provider) },
		func(cfg *config.Config) (llm.Planner, error) { return newPlanner(cfg, o.planner) },
		func(cfg *config.Config) (auditLog, error) { return newAuditLog(ctx, cfg) },
		newExecutor,
		prompts.NewManager,
		newOrchestrator,
		func(c *chat.Orchestrator) *httpbridge.Server {
			return httpbridge.NewServer(c, httpbridge.WithVersion(o.version))
		},
	}
	for _, p := range providers {
		if err := d.Provide(p); err != nil {
			return nil, errors.Wrap(err, "register component")
		}
	}

	var result *Container
	err := d.Invoke(func(
		catalog *tools.Catalog,
		provider calcom.Provider,
		audit auditLog,
		orch *chat.Orchestrator,
		server *httpbridge.Server,
	) {
		result = &Container{
			cfg:      cfg,
			catalog:  catalog,
			provider: provider,
			chat:     orch,
			server:   server,
			audit:    audit,
		}
	})
	if err != nil {
		return nil, errors.Wrap(dig.RootCause(err), "wire components")
	}
	return result, nil
}

func newProvider(cfg *config.Config, override calcom.Provider) (calcom.Provider, error) {
	if override != nil {
		return override, nil
	}
	var opts []calcom.Option
	if cfg.CalCom.APIVersion != "" {
		opts = append(opts, calcom.WithAPIVersion(cfg.CalCom.APIVersion))
	}
	if cfg.CalCom.Timeout > 0 {
		opts = append(opts, calcom.WithTimeout(cfg.CalCom.Timeout))
	}
	return calcom.NewClient(cfg.CalCom.APIKey, cfg.CalCom.BaseURL, opts...), nil
}

func newPlanner(cfg *config.Config, override llm.Planner) (llm.Planner, error) {
	if override != nil {
		return override, nil
	}
	return llm.NewPlanner(cfg.Model)
}

func newAuditLog(ctx context.Context, cfg *config.Config) (auditLog, error) {
	if !cfg.Database.Enabled {
		return auditLog{}, nil
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return auditLog{}, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return auditLog{}, err
	}

	store := database.NewAuditStore(db)
	pruner, err := database.NewPruner(store, cfg.Database.PruneSchedule, cfg.Database.Retention)
	if err != nil {
		db.Close()
		return auditLog{}, err
	}

	log.Info().Str("driver", db.Driver()).Msg("operation audit log enabled")
	return auditLog{db: db, store: store, pruner: pruner}, nil
}

func newExecutor(cfg *config.Config, provider calcom.Provider, catalog *tools.Catalog, audit auditLog) *executor.Executor {
	opts := []executor.Option{
		executor.WithDefaultEventType(cfg.CalCom.DefaultEventTypeID),
		executor.WithTimeout(cfg.Limits.OperationTimeout),
	}
	if audit.store != nil {
		opts = append(opts, executor.WithRecorder(audit.store))
	}
	return executor.New(provider, catalog, opts...)
}

func newOrchestrator(cfg *config.Config, planner llm.Planner, exec *executor.Executor, catalog *tools.Catalog, pm *prompts.Manager) *chat.Orchestrator {
	return chat.NewOrchestrator(cfg, planner, exec, catalog, chat.WithPrompter(pm))
}
