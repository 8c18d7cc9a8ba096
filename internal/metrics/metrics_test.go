package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))

	// A second registration of the same collectors is rejected.
	assert.Error(t, Register(reg))
}

func TestRecordHelpers(t *testing.T) {
	before := testutil.ToFloat64(predictionsTotal.WithLabelValues("Easy"))
	RecordPrediction("Easy")
	assert.Equal(t, before+1, testutil.ToFloat64(predictionsTotal.WithLabelValues("Easy")))

	failed := testutil.ToFloat64(simplificationsTotal.WithLabelValues("mt5", "failure"))
	RecordSimplification("mt5", errors.New("boom"))
	assert.Equal(t, failed+1, testutil.ToFloat64(simplificationsTotal.WithLabelValues("mt5", "failure")))

	ops := testutil.ToFloat64(storeOperationsTotal.WithLabelValues("memory", "insert_prediction", "success"))
	RecordStoreOperation("memory", "insert_prediction", nil, time.Millisecond)
	assert.Equal(t, ops+1, testutil.ToFloat64(storeOperationsTotal.WithLabelValues("memory", "insert_prediction", "success")))
}

func TestHTTPMetricsMiddleware_RecordsRenderedStatus(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusTeapot).SendString(err.Error())
		},
	})
	app.Use(HTTPMetricsMiddleware())
	app.Get("/fail", func(c *fiber.Ctx) error {
		return errors.New("nope")
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/fail", "418"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/fail", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)

	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/fail", "418")))
}
