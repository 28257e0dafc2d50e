package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/pipeline"
	"github.com/sells-group/intake-cli/internal/registry"
	"github.com/sells-group/intake-cli/internal/store"
	anthropicpkg "github.com/sells-group/intake-cli/pkg/anthropic"
)

// pipelineEnv holds the initialized store, reference data, and the pipeline
// needed by the run/batch/serve commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline sets up the store, the Anthropic-backed generator, loads the
// reference tables, and builds the Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	// The generator is optional: without an API key every stage degrades to
	// its deterministic fallback.
	var gen pipeline.Generator
	if cfg.Anthropic.Key != "" {
		client := anthropicpkg.NewClient(cfg.Anthropic.Key, cfg.Anthropic.RPS)
		gen = pipeline.NewLLMGenerator(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens,
			time.Duration(cfg.Anthropic.TimeoutSecs)*time.Second)
	} else {
		zap.L().Warn("INTAKE_ANTHROPIC_KEY not set, using rule-based extraction and template messages")
	}

	rules, err := loadCompanyRules()
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	dir, err := loadDirectory()
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	table, err := loadEscalationTable()
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	protocols, err := loadProtocols()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	zap.L().Info("reference data loaded",
		zap.Int("company_rules", len(rules)),
		zap.Int("escalation_companies", len(table.Companies)),
		zap.Int("protocols", len(protocols)),
	)

	p := pipeline.New(cfg, st, gen, rules, dir, table, protocols)

	return &pipelineEnv{
		Store:    st,
		Pipeline: p,
	}, nil
}

func loadCompanyRules() ([]registry.CompanyRule, error) {
	if cfg.Detect.RulesFile == "" {
		return registry.DefaultCompanyRules(), nil
	}
	rules, err := registry.LoadCompanyRules(cfg.Detect.RulesFile)
	if err != nil {
		return nil, eris.Wrap(err, "load company rules")
	}
	return rules, nil
}

func loadDirectory() (*registry.Directory, error) {
	if cfg.Registry.CustomersFile == "" {
		return registry.DefaultDirectory(), nil
	}
	dir, err := registry.LoadDirectory(cfg.Registry.CustomersFile)
	if err != nil {
		return nil, eris.Wrap(err, "load customer directory")
	}
	return dir, nil
}

func loadEscalationTable() (*registry.EscalationTable, error) {
	if cfg.Registry.EscalationFile == "" {
		return registry.DefaultEscalationTable(), nil
	}
	table, err := registry.LoadEscalationTable(cfg.Registry.EscalationFile)
	if err != nil {
		return nil, eris.Wrap(err, "load escalation table")
	}
	return table, nil
}

func loadProtocols() (registry.ProtocolTable, error) {
	if cfg.Registry.ProtocolsFile == "" {
		return registry.DefaultProtocols(), nil
	}
	protocols, err := registry.LoadProtocols(cfg.Registry.ProtocolsFile)
	if err != nil {
		return nil, eris.Wrap(err, "load protocol table")
	}
	return protocols, nil
}
