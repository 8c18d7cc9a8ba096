// Package memory keeps history in process memory. Used in tests and when
// STORE_BACKEND=memory.
package memory

import (
	"context"
	"sync"

	"github.com/okuma-lab/readability-api/internal/models"

	"github.com/google/uuid"
)

type Repository struct {
	mu              sync.RWMutex
	predictions     []models.PredictionRecord
	simplifications []models.SimplificationRecord
}

func NewRepository() *Repository {
	return &Repository{}
}

func (r *Repository) Name() string {
	return "memory"
}

func (r *Repository) InsertPrediction(_ context.Context, record *models.PredictionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record.ID = uuid.NewString()
	r.predictions = append(r.predictions, *record)
	return nil
}

func (r *Repository) FindPredictionsByUser(_ context.Context, user string) ([]models.PredictionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.PredictionRecord, 0)
	for _, p := range r.predictions {
		if p.User == user {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *Repository) DeletePredictionsByUser(_ context.Context, user string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.predictions[:0]
	var deleted int64
	for _, p := range r.predictions {
		if p.User == user {
			deleted++
			continue
		}
		kept = append(kept, p)
	}
	r.predictions = kept
	return deleted, nil
}

func (r *Repository) AllPredictions(_ context.Context) ([]models.PredictionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.PredictionRecord, len(r.predictions))
	copy(out, r.predictions)
	return out, nil
}

func (r *Repository) InsertSimplification(_ context.Context, record *models.SimplificationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record.ID = uuid.NewString()
	r.simplifications = append(r.simplifications, *record)
	return nil
}

// Simplifications returns a copy of the simplification log.
func (r *Repository) Simplifications() []models.SimplificationRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.SimplificationRecord, len(r.simplifications))
	copy(out, r.simplifications)
	return out
}

func (r *Repository) Ping(context.Context) error {
	return nil
}

func (r *Repository) EnsureIndexes(context.Context) error {
	return nil
}
