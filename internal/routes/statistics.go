package routes

import (
	"github.com/okuma-lab/readability-api/internal/middleware"
	"github.com/okuma-lab/readability-api/internal/stats"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type StatisticsHandler struct {
	aggregator *stats.Aggregator
	logger     *logrus.Logger
}

func NewStatisticsHandler(aggregator *stats.Aggregator, logger *logrus.Logger) *StatisticsHandler {
	return &StatisticsHandler{
		aggregator: aggregator,
		logger:     logger,
	}
}

// Global returns statistics over every user's predictions
// @Summary Global statistics
// @Description Totals, label counts, average score and last analysis time across all users. Admin only.
// @Tags Statistics
// @Produce json
// @Security Bearer
// @Success 200 {object} models.StatsResponse
// @Failure 401 {object} errors.ErrorResponse "Not authenticated"
// @Failure 403 {object} errors.ErrorResponse "Not an admin"
// @Failure 500 {object} errors.ErrorResponse "Store error"
// @Router /statistics/ [get]
func (h *StatisticsHandler) Global(c *fiber.Ctx) error {
	resp, err := h.aggregator.Global(c.UserContext())
	if err != nil {
		return err
	}

	fields := logrus.Fields{"total_texts": resp.TotalTexts}
	if user := middleware.CurrentUser(c); user != nil {
		fields["user_id"] = user.Username
		fields["disabled"] = user.Disabled
	}
	h.logger.WithFields(fields).Info("Statistics served")

	return c.JSON(resp)
}
