package main

import (
	"context"
	"fmt"
	"os"

	"github.com/clinigraph/clinigraph/pkg/agents"
	"github.com/clinigraph/clinigraph/pkg/builder"
	"github.com/clinigraph/clinigraph/pkg/compliance"
	"github.com/clinigraph/clinigraph/pkg/config"
	"github.com/clinigraph/clinigraph/pkg/graph"
	"github.com/clinigraph/clinigraph/pkg/logging"
	"github.com/clinigraph/clinigraph/pkg/metrics"
	"github.com/clinigraph/clinigraph/pkg/retrieval"
	"github.com/clinigraph/clinigraph/pkg/store"
)

// app wires the whole engine together from configuration.
type app struct {
	cfg     config.Config
	logger  logging.Logger
	metrics *metrics.Registry

	repo      *store.Repository
	builder   *builder.Builder
	retriever *retrieval.Retriever
	checker   *compliance.Orchestrator
	fixer     *compliance.FixOrchestrator
	snapshots *store.SnapshotStore
	postgres  *store.PostgresStore
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := logging.NewJSONLogger(os.Stderr, logging.ParseLevel(cfg.LogLevel))
	registry := metrics.NewRegistry()

	repo := store.NewRepository(cfg.Embedding.Dimensions)
	embedder := agents.NewHTTPEmbedder(cfg.Embedding)
	chat := agents.NewChatClient(cfg.Chat, logger)
	extractor := agents.NewExtractor(chat, logger)
	judge := agents.NewJudge(chat, logger)
	llmFixer := agents.NewFixer(chat, cfg.Compliance.MaxChangesPerFinding, logger)

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: registry,
		repo:    repo,
	}

	builderOpts := []builder.Option{
		builder.WithExtractor(extractor),
		builder.WithMetrics(registry),
		builder.WithSimilarityThreshold(cfg.Compliance.SimilarityThreshold),
	}

	if cfg.Storage.SnapshotDir != "" {
		snapshots, err := store.NewSnapshotStore(cfg.Storage.SnapshotDir, logger)
		if err != nil {
			return nil, err
		}
		if err := snapshots.LoadAll(repo); err != nil {
			return nil, err
		}
		a.snapshots = snapshots
		builderOpts = append(builderOpts, builder.WithPersister(snapshots))
	}

	if cfg.Storage.PostgresDSN != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.Storage.PostgresDSN, cfg.Embedding.Dimensions, logger)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		a.postgres = pg
		if a.snapshots == nil {
			builderOpts = append(builderOpts, builder.WithPersister(pg))
			if err := a.loadFromPostgres(ctx); err != nil {
				pg.Close()
				return nil, err
			}
		}
	}

	archive, err := store.NewArchive(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	builderOpts = append(builderOpts, builder.WithArchive(archive))

	a.builder = builder.New(repo, embedder, logger, builderOpts...)

	a.retriever = retrieval.New(repo, embedder, logger,
		retrieval.WithSeedCount(cfg.Retrieval.SeedCount),
		retrieval.WithPageRankOptions(graph.PageRankOptions{
			DampingFactor: cfg.Retrieval.DampingFactor,
			MaxIterations: cfg.Retrieval.MaxIterations,
			Tolerance:     cfg.Retrieval.Tolerance,
		}),
		retrieval.WithMetrics(registry),
	)

	a.checker = compliance.New(repo, embedder, a.retriever, judge, logger,
		compliance.WithWorkers(cfg.Compliance.Workers),
		compliance.WithJudgeTimeout(cfg.Compliance.JudgeTimeout.Std()),
		compliance.WithViolationThreshold(cfg.Compliance.ViolationThreshold),
		compliance.WithCandidates(cfg.Retrieval.TopK),
		compliance.WithMetrics(registry),
	)

	a.fixer = compliance.NewFixOrchestrator(repo, llmFixer, logger,
		compliance.WithFixWorkers(cfg.Compliance.Workers),
		compliance.WithFixTimeout(cfg.Compliance.JudgeTimeout.Std()),
		compliance.WithFixMetrics(registry),
	)
	return a, nil
}

func (a *app) loadFromPostgres(ctx context.Context) error {
	names, err := a.postgres.Jurisdictions(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		g, idx, err := a.postgres.Load(ctx, name)
		if err != nil {
			return fmt.Errorf("restore %s: %w", name, err)
		}
		j, err := a.repo.GetOrCreate(name)
		if err != nil {
			return err
		}
		j.Install(g, idx)
		a.logger.Info("jurisdiction restored from postgres", logging.Jurisdiction(name))
	}
	return nil
}

func (a *app) close() {
	if a.postgres != nil {
		a.postgres.Close()
	}
}
