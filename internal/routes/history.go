package routes

import (
	"bytes"
	"fmt"

	"github.com/okuma-lab/readability-api/internal/history"
	"github.com/okuma-lab/readability-api/internal/middleware"
	"github.com/okuma-lab/readability-api/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type HistoryHandler struct {
	history *history.Service
	logger  *logrus.Logger
}

func NewHistoryHandler(history *history.Service, logger *logrus.Logger) *HistoryHandler {
	return &HistoryHandler{
		history: history,
		logger:  logger,
	}
}

// Save stores a prediction in the caller's history
// @Summary Save prediction
// @Description Store a prediction record. Timestamp and owner are set by the server. Send an Idempotency-Key (UUID) to make retries safe.
// @Tags History
// @Accept json
// @Produce json
// @Security Bearer
// @Param Idempotency-Key header string false "Idempotency key (UUID)"
// @Param request body models.PredictionRecord true "Prediction record"
// @Success 200 {object} models.PredictionRecord
// @Failure 400 {object} errors.ErrorResponse "Invalid request"
// @Failure 409 {object} errors.ErrorResponse "Idempotency conflict"
// @Failure 500 {object} errors.ErrorResponse "Store error"
// @Router /history/save [post]
func (h *HistoryHandler) Save(c *fiber.Ctx) error {
	var rec models.PredictionRecord
	if err := parseBody(c, &rec); err != nil {
		return err
	}

	saved, err := h.history.Save(c.UserContext(), middleware.GetUserID(c), rec)
	if err != nil {
		return err
	}
	return c.JSON(saved)
}

// List returns the caller's history, newest first
// @Summary List history
// @Tags History
// @Produce json
// @Security Bearer
// @Success 200 {array} models.PredictionRecord
// @Failure 500 {object} errors.ErrorResponse "Store error"
// @Router /history/ [get]
func (h *HistoryHandler) List(c *fiber.Ctx) error {
	records, err := h.history.List(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(records)
}

// Clear deletes the caller's history
// @Summary Clear history
// @Tags History
// @Produce json
// @Security Bearer
// @Success 200 {object} map[string]string "Deleted N entries."
// @Failure 500 {object} errors.ErrorResponse "Store error"
// @Router /history/clear [delete]
func (h *HistoryHandler) Clear(c *fiber.Ctx) error {
	deleted, err := h.history.Clear(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Deleted %d entries.", deleted),
	})
}

// Export downloads the caller's history as CSV
// @Summary Export history
// @Tags History
// @Produce text/csv
// @Security Bearer
// @Success 200 {file} file "history.csv"
// @Failure 500 {object} errors.ErrorResponse "Store error"
// @Router /history/export [get]
func (h *HistoryHandler) Export(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := h.history.ExportCSV(c.UserContext(), middleware.GetUserID(c), &buf); err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, "attachment; filename=history.csv")
	return c.Send(buf.Bytes())
}
