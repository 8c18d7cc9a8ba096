// Package stats aggregates prediction history into the global statistics view.
package stats

import (
	"context"
	"time"

	"github.com/okuma-lab/readability-api/internal/models"
)

// Compute summarizes records. Every record counts toward the total; only Easy
// and Difficult have label buckets.
func Compute(records []models.PredictionRecord) models.StatsResponse {
	var resp models.StatsResponse
	resp.TotalTexts = len(records)
	if len(records) == 0 {
		return resp
	}

	var sum float64
	var last time.Time
	for _, r := range records {
		switch r.Label {
		case models.LabelEasy:
			resp.LabelCounts.Easy++
		case models.LabelDifficult:
			resp.LabelCounts.Difficult++
		}
		sum += r.Score
		if r.Timestamp.After(last) {
			last = r.Timestamp
		}
	}

	resp.AverageScore = sum / float64(len(records))
	if !last.IsZero() {
		last = last.UTC()
		resp.LastAnalysis = &last
	}
	return resp
}

// Source loads every stored prediction.
type Source interface {
	All(ctx context.Context) ([]models.PredictionRecord, error)
}

type Aggregator struct {
	source Source
}

func NewAggregator(source Source) *Aggregator {
	return &Aggregator{source: source}
}

// Global computes statistics across all users.
func (a *Aggregator) Global(ctx context.Context) (models.StatsResponse, error) {
	records, err := a.source.All(ctx)
	if err != nil {
		return models.StatsResponse{}, err
	}
	return Compute(records), nil
}
