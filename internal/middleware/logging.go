package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-booking/internal/log"
)

const HeaderCorrelationID = "Correlation-ID"

// RequestLogger gives every request a correlation id, taken from the
// Correlation-ID header or generated, and a logrus entry carrying it in the
// request context. The outcome of each request is logged once.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := req.Header.Get(HeaderCorrelationID)
			if id == "" {
				id = log.NewCorrelationID()
			}
			entry := logrus.WithFields(logrus.Fields{"correlation_id": id})
			ctx := log.ToContext(log.ContextWithCorrelationID(req.Context(), id), entry)
			c.SetRequest(req.WithContext(ctx))
			c.Response().Header().Set(HeaderCorrelationID, id)

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			fields := logrus.Fields{
				"method":  req.Method,
				"route":   c.Path(),
				"status":  c.Response().Status,
				"latency": time.Since(start).String(),
			}
			if c.Response().Status >= 500 {
				entry.WithFields(fields).WithError(err).Error("request failed")
			} else {
				entry.WithFields(fields).Info("request handled")
			}
			return nil
		}
	}
}
