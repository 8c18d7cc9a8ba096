package models

import (
	"fmt"
	"time"
)

// Label is the readability class assigned by the classifier.
type Label string

const (
	LabelEasy      Label = "Easy"
	LabelDifficult Label = "Difficult"
)

// SimplifyMethod selects the simplification backend.
type SimplifyMethod string

const (
	MethodOpenAI SimplifyMethod = "openai"
	MethodMT5    SimplifyMethod = "mt5"
)

// DefaultSimplifyMethod is used when the request names no method.
const DefaultSimplifyMethod = MethodOpenAI

// ParseSimplifyMethod validates a method selector.
func ParseSimplifyMethod(s string) (SimplifyMethod, error) {
	switch SimplifyMethod(s) {
	case MethodOpenAI, MethodMT5:
		return SimplifyMethod(s), nil
	default:
		return "", fmt.Errorf("unknown simplification method %q", s)
	}
}

// Prediction is the classifier output for one text.
type Prediction struct {
	Score float64 `json:"score"`
	Label Label   `json:"label"`
}

// PredictionRecord is one entry of a user's prediction history.
// Timestamp and User are always set by the server.
type PredictionRecord struct {
	ID         string    `json:"_id,omitempty"`
	Text       string    `json:"text" validate:"required"`
	Score      float64   `json:"score" validate:"gte=0,lte=1"`
	Label      Label     `json:"label" validate:"required,oneof=Easy Difficult"`
	Simplified *string   `json:"simplified"`
	Timestamp  time.Time `json:"timestamp"`
	User       string    `json:"user"`
}

// SimplificationRecord is a write-only log entry of one simplification.
type SimplificationRecord struct {
	ID             string         `json:"_id,omitempty"`
	UserID         string         `json:"user_id"`
	OriginalText   string         `json:"original_text"`
	SimplifiedText string         `json:"simplified_text"`
	Method         SimplifyMethod `json:"method"`
	CreatedAt      time.Time      `json:"created_at"`
}

// TextRequest is the body of /predict/ and /simplify/
type TextRequest struct {
	Text string `json:"text" validate:"required"`
}

// PredictionResponse is returned by /predict/
type PredictionResponse struct {
	Score      float64 `json:"score"`
	Label      Label   `json:"label"`
	Simplified *string `json:"simplified"`
}

// SimplifiedText is returned by /simplify/
type SimplifiedText struct {
	Simplified string `json:"simplified"`
}

// LabelCounts holds the per-label totals of StatsResponse
type LabelCounts struct {
	Easy      int `json:"Easy"`
	Difficult int `json:"Difficult"`
}

// StatsResponse is the global statistics view returned by /statistics/
type StatsResponse struct {
	TotalTexts   int         `json:"total_texts"`
	LabelCounts  LabelCounts `json:"label_counts"`
	AverageScore float64     `json:"average_score"`
	LastAnalysis *time.Time  `json:"last_analysis"`
}
