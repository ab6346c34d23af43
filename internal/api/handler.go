package api

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mru-images/immune-child-tracker-app-final/internal/models"
	"github.com/mru-images/immune-child-tracker-app-final/internal/notify"
	"github.com/mru-images/immune-child-tracker-app-final/internal/report"
	"github.com/mru-images/immune-child-tracker-app-final/internal/schedule"
	"github.com/mru-images/immune-child-tracker-app-final/internal/service"
	"go.uber.org/zap"
)

// Handler holds the HTTP handlers for the API
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(svc service.Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// SetupRoutes registers all API routes on the router
func (h *Handler) SetupRoutes(router *gin.Engine) {
	apiGroup := router.Group("/api")

	apiGroup.POST("/auth/register", h.Register)
	apiGroup.POST("/auth/login", h.Login)

	authed := apiGroup.Group("")
	authed.Use(AuthMiddleware())
	{
		authed.PUT("/profile", h.UpdateProfile)

		authed.POST("/children", h.CreateChild)
		authed.GET("/children", h.GetChildren)
		authed.GET("/children/:childId", h.GetChild)
		authed.PUT("/children/:childId", h.UpdateChild)
		authed.DELETE("/children/:childId", h.DeleteChild)

		authed.GET("/children/:childId/schedule", h.GetChildSchedule)
		authed.PUT("/children/:childId/schedule/:scheduleId", h.UpdateScheduleItem)
		authed.GET("/children/:childId/schedule/export", h.ExportChildSchedule)

		authed.POST("/children/:childId/vaccinations", h.RecordVaccination)
		authed.GET("/children/:childId/vaccinations", h.GetChildVaccinations)
		authed.GET("/children/:childId/vaccinations/events", h.StreamVaccinations)

		authed.GET("/schedules", h.GetAllSchedules)
		authed.GET("/vaccinations", h.GetAllVaccinations)
		authed.GET("/events", h.StreamChildren)

		authed.GET("/protocol", h.GetProtocol)
	}
}

func accountID(c *gin.Context) string {
	return c.GetString("accountId")
}

// respondError maps service error kinds onto HTTP statuses.
func (h *Handler) respondError(c *gin.Context, err error) {
	kind := service.KindOf(err)

	var status int
	var code string
	switch kind {
	case service.KindNotAuthenticated:
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	case service.KindNotFound:
		status, code = http.StatusNotFound, "NOT_FOUND"
	case service.KindValidation:
		status, code = http.StatusBadRequest, "VALIDATION_FAILURE"
	default:
		status, code = http.StatusInternalServerError, "REMOTE_FAILURE"
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}

	c.JSON(status, models.ErrorResponse{
		Status:  "error",
		Code:    code,
		Message: err.Error(),
	})
}

// Auth handlers
func (h *Handler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status: "error", Code: "VALIDATION_FAILURE", Message: err.Error(),
		})
		return
	}

	resp, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status: "error", Code: "VALIDATION_FAILURE", Message: err.Error(),
		})
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status: "error", Code: "VALIDATION_FAILURE", Message: err.Error(),
		})
		return
	}

	if err := h.svc.UpdateProfile(c.Request.Context(), accountID(c), req); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{Status: "success"})
}

// Child handlers
func (h *Handler) CreateChild(c *gin.Context) {
	var req models.CreateChildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status: "error", Code: "VALIDATION_FAILURE", Message: err.Error(),
		})
		return
	}

	child, items, err := h.svc.CreateChild(c.Request.Context(), accountID(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.CreateChildResponse{
		Status:   "success",
		Child:    child,
		Schedule: items,
	})
}

func (h *Handler) GetChildren(c *gin.Context) {
	children, err := h.svc.GetChildren(c.Request.Context(), accountID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ChildListResponse{Status: "success", Children: children})
}

func (h *Handler) GetChild(c *gin.Context) {
	child, err := h.svc.GetChild(c.Request.Context(), accountID(c), c.Param("childId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ChildResponse{
		Status: "success",
		Child:  child,
		Age:    schedule.Age(child.DateOfBirth.Time, time.Now().UTC()),
	})
}

func (h *Handler) UpdateChild(c *gin.Context) {
	var patch models.ChildPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status: "error", Code: "VALIDATION_FAILURE", Message: err.Error(),
		})
		return
	}

	if err := h.svc.UpdateChild(c.Request.Context(), accountID(c), c.Param("childId"), patch); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{Status: "success"})
}

func (h *Handler) DeleteChild(c *gin.Context) {
	if err := h.svc.DeleteChild(c.Request.Context(), accountID(c), c.Param("childId")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{Status: "success"})
}

// Schedule handlers
func (h *Handler) GetChildSchedule(c *gin.Context) {
	items, err := h.svc.GetChildSchedule(c.Request.Context(), accountID(c), c.Param("childId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ScheduleResponse{Status: "success", Items: items})
}

func (h *Handler) UpdateScheduleItem(c *gin.Context) {
	var patch models.ScheduleItemPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status: "error", Code: "VALIDATION_FAILURE", Message: err.Error(),
		})
		return
	}

	err := h.svc.UpdateScheduleItem(c.Request.Context(), accountID(c), c.Param("childId"), c.Param("scheduleId"), patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{Status: "success"})
}

func (h *Handler) ExportChildSchedule(c *gin.Context) {
	ctx := c.Request.Context()
	acct := accountID(c)
	childID := c.Param("childId")

	child, err := h.svc.GetChild(ctx, acct, childID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	items, err := h.svc.GetChildSchedule(ctx, acct, childID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	age := schedule.Age(child.DateOfBirth.Time, time.Now().UTC())
	workbook, err := report.ScheduleWorkbook(child, age, items)
	if err != nil {
		h.respondError(c, err)
		return
	}

	filename := fmt.Sprintf("schedule-%s-%s.xlsx", child.FirstName, child.LastName)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", workbook)
}

func (h *Handler) GetAllSchedules(c *gin.Context) {
	items, err := h.svc.GetAllSchedules(c.Request.Context(), accountID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ScheduleResponse{Status: "success", Items: items})
}

// Vaccination handlers
func (h *Handler) RecordVaccination(c *gin.Context) {
	var req models.RecordVaccinationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status: "error", Code: "VALIDATION_FAILURE", Message: err.Error(),
		})
		return
	}

	record, err := h.svc.RecordVaccination(c.Request.Context(), accountID(c), c.Param("childId"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.VaccinationResponse{Status: "success", Record: record})
}

func (h *Handler) GetChildVaccinations(c *gin.Context) {
	records, err := h.svc.GetChildVaccinations(c.Request.Context(), accountID(c), c.Param("childId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.VaccinationListResponse{Status: "success", Records: records})
}

func (h *Handler) GetAllVaccinations(c *gin.Context) {
	records, err := h.svc.GetAllVaccinations(c.Request.Context(), accountID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.VaccinationListResponse{Status: "success", Records: records})
}

// Protocol handler
func (h *Handler) GetProtocol(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "doses": schedule.Protocol()})
}

// Change stream handlers

// StreamChildren pushes change events for the caller's child list as
// server-sent events until the client disconnects.
func (h *Handler) StreamChildren(c *gin.Context) {
	sub, err := h.svc.SubscribeChildren(accountID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer sub.Cancel()

	h.streamEvents(c, sub)
}

// StreamVaccinations pushes change events for one child's vaccinations.
func (h *Handler) StreamVaccinations(c *gin.Context) {
	sub, err := h.svc.SubscribeVaccinations(c.Request.Context(), accountID(c), c.Param("childId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer sub.Cancel()

	h.streamEvents(c, sub)
}

func (h *Handler) streamEvents(c *gin.Context, sub *notify.Subscription) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent("change", ev)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
