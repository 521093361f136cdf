package middlewares

import (
	"eventhub/src/lib"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const CorrelationHeader = "X-Correlation-ID"

func SecureHeaders(ctx *gin.Context) {
	ctx.Header("X-Content-Type-Options", "nosniff")
	ctx.Header("X-Frame-Options", "DENY")
	ctx.Header("Referrer-Policy", "strict-origin-when-cross-origin")
	ctx.Next()
}

// RequestLogger tags every request with a correlation id and writes one
// entry once the handler chain has finished.
func RequestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(CorrelationHeader)
		if id == "" {
			id = uuid.NewString()
		}
		ctx.Set("correlation_id", id)
		ctx.Header(CorrelationHeader, id)

		start := time.Now()
		ctx.Next()

		entry := log.WithFields(logrus.Fields{
			"correlation_id": id,
			"method":         ctx.Request.Method,
			"path":           ctx.Request.URL.Path,
			"status":         ctx.Writer.Status(),
			"latency":        time.Since(start).String(),
			"client_ip":      ctx.ClientIP(),
		})
		if uid := ctx.GetUint("id"); uid > 0 {
			entry = entry.WithField("user", uid)
		}
		switch {
		case len(ctx.Errors) > 0:
			entry.Error(ctx.Errors.String())
		case ctx.Writer.Status() >= 500:
			entry.Error("request failed")
		default:
			entry.Info("request")
		}
	}
}

func Metrics(ctx *gin.Context) {
	start := time.Now()
	ctx.Next()
	route := ctx.FullPath()
	if route == "" {
		route = "unmatched"
	}
	lib.HTTPRequests.
		WithLabelValues(ctx.Request.Method, route, strconv.Itoa(ctx.Writer.Status())).
		Observe(time.Since(start).Seconds())
}
