package logger

import (
	"errors"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys shared with the HTTP middleware layer.
const (
	requestIDContextKey = "X-Request-ID"
	loggerContextKey    = "logger"
)

// Health checks poll every few seconds; logging them drowns out real traffic.
var quietPaths = map[string]bool{
	"/health":             true,
	"/api/v1/system/ping": true,
}

// GinMiddleware attaches a request-scoped logger to the gin context and
// emits one line per request once the handler chain finishes.
func GinMiddleware(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		reqLogger := base.With(
			zap.String("request_id", c.GetString(requestIDContextKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
		)
		// Logged as received; the branch middleware validates it later.
		if branchID := c.GetHeader("X-Branch-ID"); branchID != "" {
			reqLogger = reqLogger.With(zap.String("branch_id", branchID))
		}
		c.Set(loggerContextKey, reqLogger)

		c.Next()

		status := c.Writer.Status()
		if quietPaths[path] && status < http.StatusBadRequest {
			return
		}

		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if query != "" {
			fields = append(fields, zap.String("query", query))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		logAtStatus(reqLogger, status, fields)
	}
}

func logAtStatus(l *zap.Logger, status int, fields []zap.Field) {
	switch {
	case status >= http.StatusInternalServerError:
		l.Error("HTTP Request", fields...)
	case status >= http.StatusBadRequest:
		l.Warn("HTTP Request", fields...)
	default:
		l.Info("HTTP Request", fields...)
	}
}

// Recovery turns panics into a 500 response and a stack-traced log line.
// When the client already hung up there is nothing left to write, so the
// request is aborted without a response body.
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				fields := []zap.Field{
					zap.String("request_id", c.GetString(requestIDContextKey)),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Any("error", rec),
				}

				if err, ok := rec.(error); ok && isBrokenPipe(err) {
					base.Warn("Client disconnected mid-request", fields...)
					c.Abort()
					return
				}

				fields = append(fields, zap.Stack("stacktrace"))
				base.Error("Panic recovered", fields...)
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

func isBrokenPipe(err error) bool {
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		return false
	}
	var sysErr *os.SyscallError
	if !errors.As(opErr.Err, &sysErr) {
		return false
	}
	return sysErr.Err == syscall.EPIPE || sysErr.Err == syscall.ECONNRESET ||
		strings.Contains(strings.ToLower(sysErr.Error()), "broken pipe")
}

// GetGinLogger returns the request-scoped logger, or a no-op logger when the
// request never passed through GinMiddleware.
func GetGinLogger(c *gin.Context) *zap.Logger {
	if v, exists := c.Get(loggerContextKey); exists {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return zap.NewNop()
}
