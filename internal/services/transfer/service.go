package transfer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/metaphorhacker/metaphornik/internal/common"
	"github.com/metaphorhacker/metaphornik/internal/interfaces"
	"github.com/metaphorhacker/metaphornik/internal/models"
)

// ErrInvalidImport marks payloads rejected by import validation. The
// wrapped detail names what was wrong; nothing is merged on rejection.
var ErrInvalidImport = errors.New("invalid import payload")

// Service moves the whole store across the process boundary: JSON export
// for backup, validated import for restore, and optional cron-driven
// snapshot files.
type Service struct {
	storage  interfaces.AnalysisStorage
	config   *common.ExportConfig
	logger   arbor.ILogger
	validate *validator.Validate
	cron     *cron.Cron
}

// importEntry applies structural validation to one incoming record.
type importEntry struct {
	Metaphor             string                       `validate:"required"`
	Analysis             *models.MetaphorAnalysis     `validate:"required"`
	ExploredPerspectives []models.ExploredPerspective `validate:"omitempty,dive"`
}

// NewService creates a transfer service. The cron scheduler is not
// started until StartSnapshots is called.
func NewService(storage interfaces.AnalysisStorage, config *common.ExportConfig, logger arbor.ILogger) *Service {
	return &Service{
		storage:  storage,
		config:   config,
		logger:   logger,
		validate: validator.New(),
	}
}

// Export returns the entire store as a metaphor-keyed map, the shape the
// original export files use, so old exports and new ones interchange.
func (s *Service) Export() (map[string]*models.StoredMetaphorAnalysis, error) {
	return s.storage.ExportAll()
}

// ExportToFile writes a timestamped JSON snapshot into the export
// directory and returns the file path.
func (s *Service) ExportToFile() (string, error) {
	entries, err := s.storage.ExportAll()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.config.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode export: %w", err)
	}

	filename := fmt.Sprintf("metaphornik-export-%s.json", time.Now().Format("20060102-150405"))
	path := filepath.Join(s.config.Dir, filename)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	s.logger.Info().
		Str("path", path).
		Int("analyses", len(entries)).
		Msg("Store exported")

	return path, nil
}

// Import parses and validates a JSON export, then merges it into the
// store. The payload must be a metaphor-keyed map, not an array, and
// every record must pass field validation before anything is merged.
// Incoming entries overwrite stored ones of the same metaphor.
func (s *Service) Import(data []byte) (int, error) {
	var entries map[string]*models.StoredMetaphorAnalysis
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("%w: not a metaphor-keyed object: %v", ErrInvalidImport, err)
	}

	for metaphor, stored := range entries {
		if err := s.validateEntry(metaphor, stored); err != nil {
			return 0, err
		}
	}

	if err := s.storage.ImportMerge(entries); err != nil {
		return 0, err
	}

	s.logger.Info().Int("analyses", len(entries)).Msg("Store imported")

	return len(entries), nil
}

func (s *Service) validateEntry(metaphor string, stored *models.StoredMetaphorAnalysis) error {
	if stored == nil {
		return fmt.Errorf("%w: entry %q is null", ErrInvalidImport, metaphor)
	}

	entry := importEntry{
		Metaphor:             metaphor,
		Analysis:             &stored.Analysis,
		ExploredPerspectives: stored.ExploredPerspectives,
	}
	if err := s.validate.Struct(entry); err != nil {
		return fmt.Errorf("%w: entry %q: %v", ErrInvalidImport, metaphor, err)
	}

	if len(stored.Analysis.SourceDomain.Facts) == 0 || len(stored.Analysis.TargetDomain.Facts) == 0 {
		return fmt.Errorf("%w: entry %q has a domain with no facts", ErrInvalidImport, metaphor)
	}

	for _, p := range stored.ExploredPerspectives {
		if p.MappingSetIndex < 0 {
			return fmt.Errorf("%w: entry %q has negative mapping set index %d", ErrInvalidImport, metaphor, p.MappingSetIndex)
		}
	}

	for _, c := range stored.Comparisons {
		for _, idx := range c.PerspectiveIndices {
			if idx < 0 {
				return fmt.Errorf("%w: entry %q has comparison with negative perspective index", ErrInvalidImport, metaphor)
			}
		}
	}

	return nil
}

// StartSnapshots begins cron-scheduled export snapshots when a schedule
// is configured. No-op with an empty schedule.
func (s *Service) StartSnapshots() error {
	if s.config.Schedule == "" {
		return nil
	}

	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.config.Schedule, func() {
		if _, err := s.ExportToFile(); err != nil {
			s.logger.Error().Err(err).Msg("Scheduled export snapshot failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid export schedule %q: %w", s.config.Schedule, err)
	}

	s.cron.Start()
	s.logger.Info().Str("schedule", s.config.Schedule).Msg("Export snapshots scheduled")

	return nil
}

// Stop halts the snapshot scheduler, if running.
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}
