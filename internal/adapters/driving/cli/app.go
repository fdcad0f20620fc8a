package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/custodia-labs/drivesync-cli/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/drivesync-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/drivesync-cli/internal/chunker"
	"github.com/custodia-labs/drivesync-cli/internal/config"
	"github.com/custodia-labs/drivesync-cli/internal/connectors/google"
	"github.com/custodia-labs/drivesync-cli/internal/connectors/google/drive"
	"github.com/custodia-labs/drivesync-cli/internal/core/ports/driven"
	"github.com/custodia-labs/drivesync-cli/internal/core/ports/driving"
	"github.com/custodia-labs/drivesync-cli/internal/core/services"
	"github.com/custodia-labs/drivesync-cli/internal/extractors"
	"github.com/custodia-labs/drivesync-cli/internal/extractors/csvfile"
	"github.com/custodia-labs/drivesync-cli/internal/extractors/docx"
	"github.com/custodia-labs/drivesync-cli/internal/extractors/pdf"
	"github.com/custodia-labs/drivesync-cli/internal/extractors/plaintext"
	"github.com/custodia-labs/drivesync-cli/internal/extractors/xlsx"
	"github.com/custodia-labs/drivesync-cli/internal/limiter"
	"github.com/custodia-labs/drivesync-cli/internal/logger"
	"github.com/custodia-labs/drivesync-cli/internal/tracker"
)

// syncAPI is what the commands need from the sync service.
type syncAPI interface {
	driving.SyncRunner
	Reprocess(fileID string) error
	ReprocessAll() error
}

// syncRunner is the service behind the sync, watch and stats commands.
// Commands build it lazily via buildApp; tests inject a fake.
var syncRunner syncAPI

// app holds the wired object graph and everything that needs closing.
type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	runner *services.SyncService
	store  driven.DerivedStore
	embed  driven.EmbeddingService
}

// buildApp loads configuration and assembles the full pipeline.
func buildApp(ctx context.Context) (*app, error) {
	// Validation runs after the flag overlay so a folder ID given via
	// --folder satisfies the required field; file read and parse errors
	// surface as-is.
	cfg, err := config.Read(cfgPath)
	if err != nil {
		return nil, err
	}
	if folderOverride != "" {
		cfg.Drive.FolderID = folderOverride
	}
	if cfg.Drive.FolderID == "" {
		return nil, fmt.Errorf("no Drive folder configured: set drive.folder_id or pass --folder")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	}, os.Stderr)

	dataDir := cfg.DataDir
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".drivesync", "data")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	svc, err := google.NewDriveServiceFromCredentialsFile(ctx, cfg.Drive.CredentialsFile)
	if err != nil {
		return nil, err
	}
	pacer := limiter.NewPacer(cfg.Drive.CallsPerSecond)
	remote := drive.NewClient(svc, pacer, log,
		drive.WithCacheTTL(cfg.Drive.CacheTTL),
		drive.WithMaxRetries(cfg.Processing.MaxRetries),
	)

	registry := extractors.NewRegistry(log, []driven.Extractor{
		plaintext.New(),
		csvfile.New(),
		docx.New(),
		xlsx.New(),
		pdf.New(),
	})

	embedder, err := openai.NewEmbeddingService(openai.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		MaxRetries: cfg.Processing.MaxRetries,
	})
	if err != nil {
		return nil, err
	}

	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, err
	}

	track, err := tracker.New(dataDir, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	var budget *limiter.Budget
	if cfg.Budget.Enabled {
		budget = limiter.NewBudget(limiter.BudgetConfig{
			MaxRequestsPerMinute: cfg.Budget.MaxRequestsPerMinute,
			MaxRequestsPerHour:   cfg.Budget.MaxRequestsPerHour,
			MaxRequestsPerDay:    cfg.Budget.MaxRequestsPerDay,
			MaxDailyCostUSD:      cfg.Budget.MaxDailyCostUSD,
			CostPerEmbedding:     cfg.Budget.CostPerEmbedding,
			CostPerCompletion:    cfg.Budget.CostPerCompletion,
		}, filepath.Join(dataDir, "usage.json"), log)
	}

	// The embedding provider gets its own pacer; the Drive pacer only
	// covers Drive calls.
	embedPacer := limiter.NewPacer(
		float64(cfg.Embedding.RequestsPerMinute)/60.0,
		limiter.WithTokensPerMinute(cfg.Embedding.TokensPerMinute),
	)

	pipeline := services.NewPipeline(services.PipelineConfig{
		Remote:    remote,
		Extractor: registry,
		Embedder:  embedder,
		Store:     store,
		Splitter: chunker.New(
			chunker.WithChunkSize(cfg.Processing.ChunkSize),
			chunker.WithOverlap(cfg.Processing.ChunkOverlap),
		),
		Budget:    budget,
		Pacer:     embedPacer,
		BatchSize: cfg.Processing.BatchSize,
		Log:       log,
	})

	runner := services.NewSyncService(services.SyncConfig{
		Remote:    remote,
		Embedder:  embedder,
		Store:     store,
		Pipeline:  pipeline,
		Tracker:   track,
		Budget:    budget,
		FolderID:  cfg.Drive.FolderID,
		Recursive: true,
		Log:       log,
	})

	return &app{
		cfg:    cfg,
		log:    log,
		runner: runner,
		store:  store,
		embed:  embedder,
	}, nil
}

// Close releases the app's resources.
func (a *app) Close() {
	if a.embed != nil {
		a.embed.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}

// getRunner returns the injected runner or builds a full app. The
// returned closer is a no-op for injected runners.
func getRunner(ctx context.Context) (syncAPI, func(), error) {
	if syncRunner != nil {
		return syncRunner, func() {}, nil
	}
	a, err := buildApp(ctx)
	if err != nil {
		return nil, nil, err
	}
	return a.runner, a.Close, nil
}
