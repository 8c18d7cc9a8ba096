package history

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/okuma-lab/readability-api/internal/metrics"
	"github.com/okuma-lab/readability-api/internal/models"
	apperrors "github.com/okuma-lab/readability-api/pkg/errors"

	"github.com/sirupsen/logrus"
)

// CSVTimestampLayout renders timestamps in exported history.
const CSVTimestampLayout = "2006-01-02 15:04:05.999999"

var csvHeader = []string{"text", "score", "label", "simplified", "timestamp"}

// Repository persists prediction history and the simplification log.
type Repository interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	InsertPrediction(ctx context.Context, record *models.PredictionRecord) error
	FindPredictionsByUser(ctx context.Context, user string) ([]models.PredictionRecord, error)
	DeletePredictionsByUser(ctx context.Context, user string) (int64, error)
	AllPredictions(ctx context.Context) ([]models.PredictionRecord, error)
	InsertSimplification(ctx context.Context, record *models.SimplificationRecord) error
	Ping(ctx context.Context) error
	EnsureIndexes(ctx context.Context) error
}

// Service owns the per-user history semantics on top of a Repository.
type Service struct {
	repo   Repository
	logger *logrus.Logger
	now    func() time.Time
}

type Option func(*Service)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(repo Repository, logger *logrus.Logger, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend names the underlying repository.
func (s *Service) Backend() string {
	return s.repo.Name()
}

// Save appends a record owned by user. The stored timestamp and owner always
// come from the server.
func (s *Service) Save(ctx context.Context, user string, record models.PredictionRecord) (models.PredictionRecord, error) {
	record.ID = ""
	record.User = user
	record.Timestamp = s.now().UTC()

	err := s.observe("insert_prediction", func() error {
		return s.repo.InsertPrediction(ctx, &record)
	})
	if err != nil {
		return models.PredictionRecord{}, s.storeError("Failed to save history", user, err)
	}
	return record, nil
}

// List returns the user's records, newest first.
func (s *Service) List(ctx context.Context, user string) ([]models.PredictionRecord, error) {
	var records []models.PredictionRecord
	err := s.observe("find_predictions", func() error {
		var err error
		records, err = s.repo.FindPredictionsByUser(ctx, user)
		return err
	})
	if err != nil {
		return nil, s.storeError("Failed to load history", user, err)
	}

	sortNewestFirst(records)
	if records == nil {
		records = []models.PredictionRecord{}
	}
	return records, nil
}

// Clear deletes every record owned by user and returns how many were removed.
func (s *Service) Clear(ctx context.Context, user string) (int64, error) {
	var deleted int64
	err := s.observe("delete_predictions", func() error {
		var err error
		deleted, err = s.repo.DeletePredictionsByUser(ctx, user)
		return err
	})
	if err != nil {
		return 0, s.storeError("Failed to clear history", user, err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user,
		"deleted": deleted,
	}).Info("History cleared")
	return deleted, nil
}

// ExportCSV writes the same rows List returns as CSV.
func (s *Service) ExportCSV(ctx context.Context, user string, w io.Writer) error {
	records, err := s.List(ctx, user)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(csvRow(r)); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// All returns every stored prediction across users.
func (s *Service) All(ctx context.Context) ([]models.PredictionRecord, error) {
	var records []models.PredictionRecord
	err := s.observe("all_predictions", func() error {
		var err error
		records, err = s.repo.AllPredictions(ctx)
		return err
	})
	if err != nil {
		return nil, s.storeError("Failed to load statistics", "", err)
	}
	return records, nil
}

// SaveSimplification appends to the simplification log.
func (s *Service) SaveSimplification(ctx context.Context, user string, record models.SimplificationRecord) error {
	record.ID = ""
	record.UserID = user
	record.CreatedAt = s.now().UTC()

	err := s.observe("insert_simplification", func() error {
		return s.repo.InsertSimplification(ctx, &record)
	})
	if err != nil {
		return s.storeError("Failed to save simplification", user, err)
	}
	return nil
}

// Ping checks that the backend is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) observe(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordStoreOperation(s.repo.Name(), operation, err, time.Since(start))
	return err
}

func (s *Service) storeError(message, user string, err error) error {
	entry := s.logger.WithError(err).WithField("backend", s.repo.Name())
	if user != "" {
		entry = entry.WithField("user_id", user)
	}
	entry.Error(message)
	return apperrors.Store(message, err)
}

func sortNewestFirst(records []models.PredictionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
}

func csvRow(r models.PredictionRecord) []string {
	simplified := ""
	if r.Simplified != nil {
		simplified = *r.Simplified
	}
	timestamp := ""
	if !r.Timestamp.IsZero() {
		timestamp = r.Timestamp.UTC().Format(CSVTimestampLayout)
	}
	return []string{
		r.Text,
		strconv.FormatFloat(r.Score, 'f', -1, 64),
		string(r.Label),
		simplified,
		timestamp,
	}
}
