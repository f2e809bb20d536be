package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/metaphorhacker/metaphornik/internal/common"
	"github.com/metaphorhacker/metaphornik/internal/handlers"
	"github.com/metaphorhacker/metaphornik/internal/interfaces"
	"github.com/metaphorhacker/metaphornik/internal/models"
	"github.com/metaphorhacker/metaphornik/internal/services/ai"
	"github.com/metaphorhacker/metaphornik/internal/services/events"
	"github.com/metaphorhacker/metaphornik/internal/services/explorer"
	"github.com/metaphorhacker/metaphornik/internal/services/facts"
	"github.com/metaphorhacker/metaphornik/internal/services/render"
	"github.com/metaphorhacker/metaphornik/internal/services/transfer"
	storagebadger "github.com/metaphorhacker/metaphornik/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Core services
	EventService    interfaces.EventService
	AIService       interfaces.AIService
	ExplorerService *explorer.Service
	FactsService    *facts.Service
	TransferService *transfer.Service
	RenderService   *render.Service

	// HTTP handlers
	AnalysisHandler  *handlers.AnalysisHandler
	ExplorerHandler  *handlers.ExplorerHandler
	FactsHandler     *handlers.FactsHandler
	TransferHandler  *handlers.TransferHandler
	StatusHandler    *handlers.StatusHandler
	WSHandler        *handlers.WebSocketHandler
	DocumentRenderer *handlers.DocumentRenderer
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	logger.Info().Msg("Application initialized")
	return app, nil
}

func (a *App) initStorage() error {
	manager, err := storagebadger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.StorageManager = manager

	a.Logger.Info().
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage initialized")
	return nil
}

func (a *App) initServices() error {
	a.EventService = events.NewService(a.Logger)

	aiService, err := ai.NewService(a.Config, a.StorageManager.KeyValueStorage(), a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create AI service: %w", err)
	}
	a.AIService = aiService

	analysisStorage := a.StorageManager.AnalysisStorage()

	a.ExplorerService = explorer.NewService(analysisStorage, a.AIService, a.EventService, a.Logger)
	a.FactsService = facts.NewService(analysisStorage, a.AIService, a.Logger)
	a.TransferService = transfer.NewService(analysisStorage, &a.Config.Export, a.Logger)
	a.RenderService = render.NewService(a.Logger)

	if err := a.TransferService.StartSnapshots(); err != nil {
		a.Logger.Warn().Err(err).Msg("Snapshot schedule not started")
	}

	a.Logger.Info().Msg("Services initialized")
	return nil
}

func (a *App) initHandlers() {
	analysisStorage := a.StorageManager.AnalysisStorage()

	a.AnalysisHandler = handlers.NewAnalysisHandler(a.ExplorerService, a.AIService, analysisStorage, a.EventService, a.Logger)
	a.ExplorerHandler = handlers.NewExplorerHandler(a.ExplorerService, a.Logger)
	a.FactsHandler = handlers.NewFactsHandler(a.FactsService, a.Logger)
	a.TransferHandler = handlers.NewTransferHandler(a.TransferService, a.Logger)
	a.StatusHandler = handlers.NewStatusHandler(analysisStorage, a.Config, models.NowMillis(), a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.Logger)
	a.DocumentRenderer = handlers.NewDocumentRenderer(analysisStorage, a.RenderService, a.Logger)

	a.Logger.Info().Msg("Handlers initialized")
}

// Close shuts down all components in reverse initialization order.
func (a *App) Close() error {
	if a.WSHandler != nil {
		a.WSHandler.Close()
	}

	if a.TransferService != nil {
		a.TransferService.Stop()
	}

	if a.AIService != nil {
		if err := a.AIService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close AI service")
		}
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
