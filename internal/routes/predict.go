package routes

import (
	"context"

	"github.com/okuma-lab/readability-api/internal/history"
	"github.com/okuma-lab/readability-api/internal/logging"
	"github.com/okuma-lab/readability-api/internal/metrics"
	"github.com/okuma-lab/readability-api/internal/middleware"
	"github.com/okuma-lab/readability-api/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Inference is what the API needs from the inference gateway.
type Inference interface {
	Classify(ctx context.Context, text string) (models.Prediction, error)
	Simplify(ctx context.Context, method models.SimplifyMethod, text string) (string, error)
}

type PredictHandler struct {
	inference Inference
	history   *history.Service
	logger    *logrus.Logger
}

func NewPredictHandler(inference Inference, history *history.Service, logger *logrus.Logger) *PredictHandler {
	return &PredictHandler{
		inference: inference,
		history:   history,
		logger:    logger,
	}
}

// Predict classifies text and records the result in the caller's history
// @Summary Predict readability
// @Description Classify a Turkish text as Easy or Difficult. The prediction is saved to the caller's history.
// @Tags Predict
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body models.TextRequest true "Text to classify"
// @Success 200 {object} models.PredictionResponse
// @Failure 400 {object} errors.ErrorResponse "Invalid request"
// @Failure 401 {object} errors.ErrorResponse "Not authenticated"
// @Failure 500 {object} errors.ErrorResponse "Inference or store error"
// @Router /predict/ [post]
func (h *PredictHandler) Predict(c *fiber.Ctx) error {
	var req models.TextRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ctx, span := middleware.StartSpan(c.UserContext(), "predict")
	defer span.End()
	user := middleware.GetUserID(c)

	pred, err := h.inference.Classify(ctx, req.Text)
	if err != nil {
		span.RecordError(err)
		return err
	}
	metrics.RecordPrediction(string(pred.Label))

	if _, err := h.history.Save(ctx, user, models.PredictionRecord{
		Text:  req.Text,
		Score: pred.Score,
		Label: pred.Label,
	}); err != nil {
		span.RecordError(err)
		return err
	}

	logging.WithUserID(h.logger, user).WithFields(logrus.Fields{
		"label": pred.Label,
		"score": pred.Score,
	}).Debug("Prediction recorded")

	return c.JSON(models.PredictionResponse{
		Score: pred.Score,
		Label: pred.Label,
	})
}
