package handlers

import (
	"context"
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/wa-pairing-service/internal/connection"
	"github.com/onurcolak/wa-pairing-service/internal/domain"
	"github.com/onurcolak/wa-pairing-service/pkg/response"
	"github.com/onurcolak/wa-pairing-service/pkg/validator"
)

type pairingService interface {
	RequestCodes(ctx context.Context, rawPhone string, count int) (*domain.CodeBatch, error)
	GetBatches(ctx context.Context, phone string, page, pageSize int) ([]domain.BatchRecord, int64, error)
	GetStats(ctx context.Context) (domain.BatchStats, error)
	GetLatestBatch(ctx context.Context, rawPhone string) (*domain.CodeBatch, error)
	QueueDepth() int
}

type connectionStatus interface {
	Status() connection.Status
}

type PairingHandler struct {
	service    pairingService
	connection connectionStatus
}

func NewPairingHandler(service pairingService, conn connectionStatus) *PairingHandler {
	return &PairingHandler{service: service, connection: conn}
}

type GenerateCodesRequest struct {
	Phone string `json:"phone" validate:"required,dialable"`
	Count int    `json:"count"`
}

type PairingStatus struct {
	Ready      bool              `json:"ready"`
	QueueDepth int               `json:"queueDepth"`
	State      string            `json:"state"`
	Connection connection.Status `json:"connection"`
}

// GenerateCodes godoc
// @Summary Generate pairing codes
// @Description Queues a request for count pairing codes for one phone number and waits for the batch. Counts outside 1..PAIRING_MAX_COUNT are clamped.
// @Tags pairing
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key for pairing"
// @Param request body GenerateCodesRequest true "Phone and count"
// @Success 200 {object} response.SuccessResponse{data=domain.CodeBatch}
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 408 {object} response.ErrorResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Failure 429 {object} response.ErrorResponse
// @Failure 503 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/pairing/codes [post]
func (h *PairingHandler) GenerateCodes(c echo.Context) error {
	var req GenerateCodesRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	batch, err := h.service.RequestCodes(c.Request().Context(), req.Phone, req.Count)
	if err != nil {
		return response.FromError(c, err)
	}

	if batch.PersistError != "" {
		return response.OkWithMessage(c, "Codes generated but could not be saved", batch)
	}
	return response.OkWithMessage(c, fmt.Sprintf("Generated %d codes", len(batch.Codes)), batch)
}

// GetStatus godoc
// @Summary Get pairing status
// @Description Returns connection readiness and the number of queued requests
// @Tags pairing
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key for pairing"
// @Success 200 {object} response.SuccessResponse{data=PairingStatus}
// @Router /api/v1/pairing/status [get]
func (h *PairingHandler) GetStatus(c echo.Context) error {
	status := h.connection.Status()
	return response.Ok(c, PairingStatus{
		Ready:      status.Ready,
		QueueDepth: h.service.QueueDepth(),
		State:      string(status.State),
		Connection: status,
	})
}

// GetBatches godoc
// @Summary Get batch history
// @Description Retrieves a paginated list of generated batches, newest first
// @Tags pairing
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key for pairing"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Param phone query string false "Filter by phone number"
// @Success 200 {object} response.PaginatedResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/pairing/batches [get]
func (h *PairingHandler) GetBatches(c echo.Context) error {
	page, pageSize, err := parsePaginationParams(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	batches, totalCount, err := h.service.GetBatches(c.Request().Context(), c.QueryParam("phone"), page, pageSize)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Paginated(c, batches, page, pageSize, totalCount)
}

// GetStats godoc
// @Summary Get batch statistics
// @Description Returns total batches, codes and distinct phones
// @Tags pairing
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key for pairing"
// @Success 200 {object} response.SuccessResponse{data=domain.BatchStats}
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/pairing/batches/stats [get]
func (h *PairingHandler) GetStats(c echo.Context) error {
	stats, err := h.service.GetStats(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, stats)
}

// GetLatestBatch godoc
// @Summary Get latest batch for a phone
// @Description Returns the most recent batch for a phone, from cache when possible
// @Tags pairing
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key for pairing"
// @Param phone path string true "Phone number"
// @Success 200 {object} response.SuccessResponse{data=domain.CodeBatch}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/pairing/batches/latest/{phone} [get]
func (h *PairingHandler) GetLatestBatch(c echo.Context) error {
	batch, err := h.service.GetLatestBatch(c.Request().Context(), c.Param("phone"))
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Ok(c, batch)
}

func parsePaginationParams(c echo.Context) (int, int, error) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)

	page := defaultPage
	if pageStr := c.QueryParam("page"); pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			return 0, 0, fmt.Errorf("page must be a positive integer")
		}
		page = p
	}

	pageSize := defaultPageSize
	if pageSizeStr := c.QueryParam("pageSize"); pageSizeStr != "" {
		ps, err := strconv.Atoi(pageSizeStr)
		if err != nil || ps <= 0 || ps > maxPageSize {
			return 0, 0, fmt.Errorf("pageSize must be between 1 and %d", maxPageSize)
		}
		pageSize = ps
	}

	return page, pageSize, nil
}
