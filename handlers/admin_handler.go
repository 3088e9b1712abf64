package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/onurcolak/wa-pairing-service/environments"
	"github.com/onurcolak/wa-pairing-service/internal/connection"
	"github.com/onurcolak/wa-pairing-service/internal/scheduler"
	"github.com/onurcolak/wa-pairing-service/pkg/response"
	"github.com/onurcolak/wa-pairing-service/pkg/validator"
)

const qrImageSize = 256

type connectionAdmin interface {
	Reset(ctx context.Context)
	ResetSession(ctx context.Context) error
	LoginQR(now time.Time) (string, bool)
	Status() connection.Status
}

type maintenanceScheduler interface {
	StartWithInterval(ctx context.Context, interval time.Duration) error
	Stop() error
	IsRunning() bool
	GetStatus() scheduler.SchedulerStatus
}

type AdminHandler struct {
	connection connectionAdmin
	scheduler  maintenanceScheduler
	ctx        context.Context
	config     *environments.Config
	now        func() time.Time
}

type StartMaintenanceRequest struct {
	Interval *int `json:"interval,omitempty" validate:"omitempty,min=1"` // seconds
}

func NewAdminHandler(
	conn connectionAdmin,
	sched maintenanceScheduler,
	ctx context.Context,
	cfg *environments.Config,
) *AdminHandler {
	return &AdminHandler{
		connection: conn,
		scheduler:  sched,
		ctx:        ctx,
		config:     cfg,
		now:        time.Now,
	}
}

// ResetSession godoc
// @Summary Reset the session
// @Description Drops the connection, wipes stored credentials and reconnects with a fresh identity
// @Tags admin
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key for admin"
// @Success 200 {object} response.SuccessResponse{data=connection.Status}
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/admin/session/reset [post]
func (h *AdminHandler) ResetSession(c echo.Context) error {
	if err := h.connection.ResetSession(c.Request().Context()); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Session reset, reconnecting", h.connection.Status())
}

// Reconnect godoc
// @Summary Reconnect
// @Description Clears the permanently-failed flag and reconnects immediately, keeping credentials
// @Tags admin
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key for admin"
// @Success 200 {object} response.SuccessResponse{data=connection.Status}
// @Router /api/v1/admin/connection/reconnect [post]
func (h *AdminHandler) Reconnect(c echo.Context) error {
	h.connection.Reset(c.Request().Context())

	return response.OkWithMessage(c, "Reconnecting", h.connection.Status())
}

// GetLoginQR godoc
// @Summary Get login QR code
// @Description Returns the currently valid login QR code as a PNG while the session is unpaired
// @Tags admin
// @Produce png
// @Param x-api-key header string true "API key for admin"
// @Success 200 {file} binary
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/admin/session/qr [get]
func (h *AdminHandler) GetLoginQR(c echo.Context) error {
	code, ok := h.connection.LoginQR(h.now())
	if !ok {
		return response.NotFound(c, "No login QR code available")
	}

	png, err := qrcode.Encode(code, qrcode.Medium, qrImageSize)
	if err != nil {
		return response.InternalServerError(c, errors.New("failed to render QR code: "+err.Error()))
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.Blob(http.StatusOK, "image/png", png)
}

// StartMaintenance godoc
// @Summary Start the maintenance scheduler
// @Description Starts periodic queue sweeping and connection alerts with an optional interval in seconds
// @Tags admin
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key for admin"
// @Param request body StartMaintenanceRequest false "Scheduler parameters (optional)"
// @Success 200 {object} response.SuccessResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/admin/maintenance/start [post]
func (h *AdminHandler) StartMaintenance(c echo.Context) error {
	if h.scheduler.IsRunning() {
		return response.OkWithMessage(c, "Scheduler is already running", h.scheduler.GetStatus())
	}

	var req StartMaintenanceRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	interval := h.config.Maintenance.Interval
	if req.Interval != nil {
		interval = time.Duration(*req.Interval) * time.Second
	}

	if err := h.scheduler.StartWithInterval(h.ctx, interval); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Scheduler started successfully", h.scheduler.GetStatus())
}

// StopMaintenance godoc
// @Summary Stop the maintenance scheduler
// @Tags admin
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key for admin"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/admin/maintenance/stop [post]
func (h *AdminHandler) StopMaintenance(c echo.Context) error {
	if !h.scheduler.IsRunning() {
		return response.OkWithMessage(c, "Scheduler is already stopped", h.scheduler.GetStatus())
	}

	if err := h.scheduler.Stop(); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Scheduler stopped successfully", h.scheduler.GetStatus())
}

// GetMaintenanceStatus godoc
// @Summary Get maintenance scheduler status
// @Tags admin
// @Accept json
// @Produce json
// @Param x-api-key header string true "API key for admin"
// @Success 200 {object} response.SuccessResponse
// @Router /api/v1/admin/maintenance/status [get]
func (h *AdminHandler) GetMaintenanceStatus(c echo.Context) error {
	return response.Ok(c, h.scheduler.GetStatus())
}
