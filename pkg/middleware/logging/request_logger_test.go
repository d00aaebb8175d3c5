package loggingmw

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/returns/pkg/logging"
)

func TestRequestLogger(t *testing.T) {
	tests := []struct {
		name    string
		handler echo.HandlerFunc
		status  int
		level   string
	}{
		{
			name:    "ok",
			handler: func(c echo.Context) error { return c.NoContent(http.StatusOK) },
			status:  http.StatusOK,
			level:   "INFO",
		},
		{
			name:    "client error",
			handler: func(c echo.Context) error { return echo.NewHTTPError(http.StatusConflict, "busy") },
			status:  http.StatusConflict,
			level:   "WARN",
		},
		{
			name:    "server error",
			handler: func(c echo.Context) error { return echo.NewHTTPError(http.StatusInternalServerError, "boom") },
			status:  http.StatusInternalServerError,
			level:   "ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/returns", nil)
			req.Header.Set(echo.HeaderXRequestID, "rid-1")
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			var sawLogger bool
			h := RequestLogger(logging.NewWithWriter(&buf, "info"))(func(c echo.Context) error {
				sawLogger = logging.FromContext(c.Request().Context()) != nil
				return tt.handler(c)
			})

			require.NoError(t, h(c))
			assert.True(t, sawLogger)
			assert.Equal(t, tt.status, rec.Code)

			var line map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
			assert.Equal(t, tt.level, line["level"])
			assert.Equal(t, "rid-1", line["request_id"])
			assert.EqualValues(t, tt.status, line["status"])
		})
	}
}
