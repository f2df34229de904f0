package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ims/backend/internal/infrastructure/logger"
)

// Context keys for branch information
const (
	BranchIDKey     = "branch_id"
	BranchHeaderKey = "X-Branch-ID"
)

// BranchMiddlewareConfig holds configuration for branch middleware
type BranchMiddlewareConfig struct {
	// SkipPaths are paths that don't require branch context (e.g., health check)
	SkipPaths []string
	// Required determines if branch context is mandatory
	Required bool
	// Logger for middleware logging
	Logger *zap.Logger
}

// DefaultBranchConfig returns default branch middleware configuration
func DefaultBranchConfig() BranchMiddlewareConfig {
	return BranchMiddlewareConfig{
		SkipPaths: []string{"/health", "/healthz", "/ready", "/api/v1/health", "/api/v1/units"},
		Required:  true,
		Logger:    nil,
	}
}

// BranchMiddleware extracts the branch ID from the X-Branch-ID header
func BranchMiddleware() gin.HandlerFunc {
	return BranchMiddlewareWithConfig(DefaultBranchConfig())
}

// BranchMiddlewareWithConfig returns branch middleware with custom configuration
func BranchMiddlewareWithConfig(cfg BranchMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check if path should be skipped
		path := c.Request.URL.Path
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath || strings.HasPrefix(path, skipPath+"/") {
				c.Next()
				return
			}
		}

		branchID := c.GetHeader(BranchHeaderKey)

		// Validate branch ID format if present
		if branchID != "" {
			if _, err := uuid.Parse(branchID); err != nil {
				respondBranchError(c, "Invalid branch ID format")
				return
			}
		}

		if branchID == "" && cfg.Required {
			respondBranchError(c, "Branch identification required")
			return
		}

		if branchID != "" {
			// Set in gin context for easy access in handlers
			c.Set(BranchIDKey, branchID)

			// Set in request context for service layer access
			ctx := c.Request.Context()
			log := logger.FromContext(ctx)
			ctx, _ = logger.WithBranchID(ctx, log, branchID)
			c.Request = c.Request.WithContext(ctx)

			if cfg.Logger != nil {
				cfg.Logger.Debug("Branch identified",
					zap.String("branch_id", branchID),
				)
			}
		}

		c.Next()
	}
}

// respondBranchError sends a bad request response for branch resolution failures
func respondBranchError(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "ERR_BAD_REQUEST",
			"message": message,
		},
	})
}

// GetBranchID retrieves the branch ID from gin.Context
func GetBranchID(c *gin.Context) string {
	if branchID, exists := c.Get(BranchIDKey); exists {
		if bid, ok := branchID.(string); ok {
			return bid
		}
	}
	return ""
}

// GetBranchUUID retrieves the branch ID as UUID from gin.Context
func GetBranchUUID(c *gin.Context) (uuid.UUID, error) {
	branchID := GetBranchID(c)
	if branchID == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(branchID)
}

// MustGetBranchUUID retrieves the branch ID as UUID or panics if not found.
// Use this only in handlers behind BranchMiddleware with Required set.
func MustGetBranchUUID(c *gin.Context) uuid.UUID {
	branchUUID, err := GetBranchUUID(c)
	if err != nil || branchUUID == uuid.Nil {
		panic("valid branch_id not found in context")
	}
	return branchUUID
}

// OptionalBranchMiddleware creates middleware that doesn't require a branch
func OptionalBranchMiddleware() gin.HandlerFunc {
	cfg := DefaultBranchConfig()
	cfg.Required = false
	return BranchMiddlewareWithConfig(cfg)
}
