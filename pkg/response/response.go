package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/wa-pairing-service/internal/domain"
)

type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error"`
}

type PaginatedResponse struct {
	Success    bool  `json:"success"`
	Data       any   `json:"data"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalCount int64 `json:"totalCount"`
	TotalPages int   `json:"totalPages"`
}

func Ok(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data:    data,
	})
}

func OkWithMessage(c echo.Context, message string, data any) error {
	return c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func BadRequest(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{
		Success: false,
		Error:   err.Error(),
	})
}

func Unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{
		Success: false,
		Error:   "Invalid or missing API key",
	})
}

func NotFound(c echo.Context, message string) error {
	return c.JSON(http.StatusNotFound, ErrorResponse{
		Success: false,
		Error:   message,
	})
}

func InternalServerError(c echo.Context, err error) error {
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Success: false,
		Error:   err.Error(),
	})
}

func Paginated(c echo.Context, data any, page, pageSize int, totalCount int64) error {
	totalPages := int(totalCount) / pageSize
	if int(totalCount)%pageSize > 0 {
		totalPages++
	}

	return c.JSON(http.StatusOK, PaginatedResponse{
		Success:    true,
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
	})
}

func Forbidden(c echo.Context, err error) error {
	return c.JSON(http.StatusForbidden, ErrorResponse{
		Success: false,
		Code:    "not_allowed",
		Error:   err.Error(),
	})
}

func TooManyRequests(c echo.Context, err error) error {
	return c.JSON(http.StatusTooManyRequests, ErrorResponse{
		Success: false,
		Code:    "rate_limited",
		Error:   err.Error(),
	})
}

func ServiceUnavailable(c echo.Context, code string, err error) error {
	return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
		Success: false,
		Code:    code,
		Error:   err.Error(),
	})
}

func RequestTimeout(c echo.Context, err error) error {
	return c.JSON(http.StatusRequestTimeout, ErrorResponse{
		Success: false,
		Code:    "expired",
		Error:   err.Error(),
	})
}

// FromError maps a service error to its HTTP response.
func FromError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidPhone):
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Code:    "invalid_phone",
			Error:   err.Error(),
		})
	case errors.Is(err, domain.ErrPhoneNotAllowed):
		return Forbidden(c, err)
	case errors.Is(err, domain.ErrRateLimited):
		return TooManyRequests(c, err)
	case errors.Is(err, domain.ErrNotReady):
		return ServiceUnavailable(c, "not_ready", err)
	case errors.Is(err, domain.ErrConnectionLost):
		return ServiceUnavailable(c, "connection_lost", err)
	case errors.Is(err, domain.ErrQueueStopped):
		return ServiceUnavailable(c, "shutting_down", err)
	case errors.Is(err, domain.ErrExpired):
		return RequestTimeout(c, err)
	case errors.Is(err, domain.ErrBatchNotFound):
		return NotFound(c, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return RequestTimeout(c, err)
	default:
		return InternalServerError(c, err)
	}
}
