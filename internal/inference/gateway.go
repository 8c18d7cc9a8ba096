// Package inference turns raw model server and chat completion output into
// readability predictions and simplified text.
package inference

import (
	"context"
	"errors"
	"math"

	"github.com/okuma-lab/readability-api/internal/models"
	apperrors "github.com/okuma-lab/readability-api/pkg/errors"

	"github.com/sirupsen/logrus"
)

// difficultIndex is the classifier output position of the Difficult class.
const difficultIndex = 1

// Classifier returns unnormalized class scores for a text.
type Classifier interface {
	Logits(ctx context.Context, text string) ([]float64, error)
}

// Generator runs the local seq2seq simplifier.
type Generator interface {
	Generate(ctx context.Context, text string) (string, error)
}

// RemoteSimplifier delegates simplification to a hosted language model.
type RemoteSimplifier interface {
	Simplify(ctx context.Context, text string) (string, error)
}

type Gateway struct {
	classifier Classifier
	generator  Generator
	remote     RemoteSimplifier
	logger     *logrus.Logger
}

func NewGateway(classifier Classifier, generator Generator, remote RemoteSimplifier, logger *logrus.Logger) *Gateway {
	return &Gateway{
		classifier: classifier,
		generator:  generator,
		remote:     remote,
		logger:     logger,
	}
}

// Classify labels text as Easy or Difficult. Score is the probability of the
// chosen label.
func (g *Gateway) Classify(ctx context.Context, text string) (models.Prediction, error) {
	logits, err := g.classifier.Logits(ctx, text)
	if err != nil {
		g.logger.WithError(err).Error("Classification failed")
		return models.Prediction{}, apperrors.Inference(err.Error(), err)
	}

	probs, err := softmax(logits)
	if err != nil {
		return models.Prediction{}, apperrors.Inference(err.Error(), err)
	}

	best := argmax(probs)
	label := models.LabelEasy
	if best == difficultIndex {
		label = models.LabelDifficult
	}

	return models.Prediction{Score: probs[best], Label: label}, nil
}

// Simplify rewrites text with the selected backend.
func (g *Gateway) Simplify(ctx context.Context, method models.SimplifyMethod, text string) (string, error) {
	switch method {
	case models.MethodMT5:
		return g.SimplifyLocal(ctx, text)
	case models.MethodOpenAI:
		return g.SimplifyRemote(ctx, text)
	default:
		return "", apperrors.BadRequest("Unknown simplification method: " + string(method))
	}
}

// SimplifyLocal uses the mt5 model on the model server.
func (g *Gateway) SimplifyLocal(ctx context.Context, text string) (string, error) {
	out, err := g.generator.Generate(ctx, text)
	if err != nil {
		g.logger.WithError(err).Error("Local simplification failed")
		return "", apperrors.Inference(err.Error(), err)
	}
	return out, nil
}

// SimplifyRemote uses the chat completion backend.
func (g *Gateway) SimplifyRemote(ctx context.Context, text string) (string, error) {
	out, err := g.remote.Simplify(ctx, text)
	if err != nil {
		g.logger.WithError(err).Error("Remote simplification failed")
		return "", apperrors.Inference(err.Error(), err)
	}
	return out, nil
}

func softmax(logits []float64) ([]float64, error) {
	if len(logits) == 0 {
		return nil, errors.New("classifier returned no logits")
	}

	maxLogit := math.Inf(-1)
	for _, l := range logits {
		if math.IsNaN(l) || math.IsInf(l, 0) {
			return nil, errors.New("classifier returned non-finite logits")
		}
		maxLogit = math.Max(maxLogit, l)
	}

	probs := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		probs[i] = math.Exp(l - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs, nil
}

// argmax returns the first index of the largest value.
func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
