package routes

import (
	"github.com/okuma-lab/readability-api/internal/history"
	"github.com/okuma-lab/readability-api/internal/metrics"
	"github.com/okuma-lab/readability-api/internal/middleware"
	"github.com/okuma-lab/readability-api/internal/models"
	apperrors "github.com/okuma-lab/readability-api/pkg/errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type SimplifyHandler struct {
	inference Inference
	history   *history.Service
	logger    *logrus.Logger
}

func NewSimplifyHandler(inference Inference, history *history.Service, logger *logrus.Logger) *SimplifyHandler {
	return &SimplifyHandler{
		inference: inference,
		history:   history,
		logger:    logger,
	}
}

// Simplify rewrites text for readers with dyslexia
// @Summary Simplify text
// @Description Simplify a Turkish text with the hosted chat model (openai) or the local mt5 model. Every result is logged.
// @Tags Simplify
// @Accept json
// @Produce json
// @Security Bearer
// @Param method query string false "Simplification backend" Enums(openai, mt5) default(openai)
// @Param request body models.TextRequest true "Text to simplify"
// @Success 200 {object} models.SimplifiedText
// @Failure 400 {object} errors.ErrorResponse "Unknown method or invalid request"
// @Failure 401 {object} errors.ErrorResponse "Not authenticated"
// @Failure 500 {object} errors.ErrorResponse "Inference or store error"
// @Router /simplify/ [post]
func (h *SimplifyHandler) Simplify(c *fiber.Ctx) error {
	selector := string(models.DefaultSimplifyMethod)
	if c.Context().QueryArgs().Has("method") {
		selector = c.Query("method")
	}
	method, err := models.ParseSimplifyMethod(selector)
	if err != nil {
		return apperrors.NewAppError(apperrors.CodeBadRequest, err.Error(), err)
	}

	var req models.TextRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ctx, span := middleware.StartSpan(c.UserContext(), "simplify")
	defer span.End()
	user := middleware.GetUserID(c)

	simplified, err := h.inference.Simplify(ctx, method, req.Text)
	metrics.RecordSimplification(string(method), err)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if err := h.history.SaveSimplification(ctx, user, models.SimplificationRecord{
		OriginalText:   req.Text,
		SimplifiedText: simplified,
		Method:         method,
	}); err != nil {
		span.RecordError(err)
		return err
	}

	return c.JSON(models.SimplifiedText{Simplified: simplified})
}
