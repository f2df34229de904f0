package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ims/backend/internal/domain/inventory"
	"github.com/ims/backend/internal/domain/sales"
	"github.com/ims/backend/internal/domain/shared"
	"github.com/ims/backend/internal/domain/unit"
	"github.com/ims/backend/internal/interfaces/http/dto"
	"github.com/ims/backend/internal/interfaces/http/middleware"
)

// RequestIDKey is the context key for request ID
const RequestIDKey = "X-Request-ID"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	if id := c.GetHeader(RequestIDKey); id != "" {
		return id
	}
	return ""
}

// getBranchID extracts the branch ID resolved by the branch middleware
func getBranchID(c *gin.Context) (uuid.UUID, error) {
	branchID, err := middleware.GetBranchUUID(c)
	if err != nil {
		return uuid.Nil, err
	}
	if branchID == uuid.Nil {
		return uuid.Nil, errors.New("branch ID not found in context")
	}
	return branchID, nil
}

// parseFilter builds a query filter from list query parameters
func parseFilter(c *gin.Context) shared.Filter {
	filter := shared.DefaultFilter()

	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 0 {
		filter.Page = page
	}
	if pageSize, err := strconv.Atoi(c.Query("page_size")); err == nil && pageSize > 0 {
		filter.PageSize = pageSize
	}
	if orderBy := c.Query("order_by"); orderBy != "" {
		filter.OrderBy = orderBy
	}
	if orderDir := c.Query("order_dir"); orderDir != "" {
		filter.OrderDir = orderDir
	}
	filter.Search = c.Query("search")
	if status := c.Query("status"); status != "" {
		filter.Filters["status"] = status
	}

	return filter
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	requestID := getRequestID(c)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	statusCode := dto.GetHTTPStatus(code)
	requestID := getRequestID(c)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Conflict sends a 409 conflict response
func (h *BaseHandler) Conflict(c *gin.Context, message string) {
	h.Error(c, http.StatusConflict, dto.ErrCodeConflict, message)
}

// UnprocessableEntity sends a 422 unprocessable entity response
func (h *BaseHandler) UnprocessableEntity(c *gin.Context, code, message string) {
	h.Error(c, http.StatusUnprocessableEntity, code, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// ValidationError sends a 400 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	requestID := getRequestID(c)
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		requestID,
		details,
	))
}

// HandleError converts domain and application errors to HTTP responses
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	// Transition rejections carry an insufficient-stock cause, so they must
	// be matched before the bare stock error
	var transitionErr *sales.InsufficientStockForTransitionError
	if errors.As(err, &transitionErr) {
		h.ErrorWithCode(c, dto.ErrCodeTransitionBlocked, transitionErr.Error())
		return
	}

	var stockErr *inventory.InsufficientStockError
	if errors.As(err, &stockErr) {
		h.ErrorWithCode(c, dto.ErrCodeInsufficientStock, stockErr.Error())
		return
	}

	var mismatchErr *inventory.UnitMismatchError
	if errors.As(err, &mismatchErr) {
		h.ErrorWithCode(c, dto.ErrCodeUnitMismatch, mismatchErr.Error())
		return
	}

	var impreciseErr *inventory.ImpreciseQuantityError
	if errors.As(err, &impreciseErr) {
		h.ErrorWithCode(c, dto.ErrCodeImpreciseQuantity, impreciseErr.Error())
		return
	}

	var unknownUnitErr *unit.UnknownUnitError
	if errors.As(err, &unknownUnitErr) {
		h.ErrorWithCode(c, dto.ErrCodeUnknownUnit, unknownUnitErr.Error())
		return
	}

	var flagsErr *sales.InvalidDeliveryFlagsError
	if errors.As(err, &flagsErr) {
		h.ErrorWithCode(c, dto.ErrCodeInvalidDeliveryFlags, flagsErr.Error())
		return
	}

	var lockErr *inventory.LockTimeoutError
	if errors.As(err, &lockErr) {
		h.ErrorWithCode(c, dto.ErrCodeLockTimeout, lockErr.Error())
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		h.ErrorWithCode(c, code, domainErr.Message)
		return
	}

	h.InternalError(c, "An unexpected error occurred")
}
