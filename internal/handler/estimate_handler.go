package handler

import (
	"net/http"

	"invoicing/internal/middleware"
	"invoicing/internal/service"
	"invoicing/pkg/pagination"
	"invoicing/pkg/response"

	"github.com/gin-gonic/gin"
)

type EstimateHandler struct {
	estimateService service.EstimateService
	auth            *middleware.Auth
}

func NewEstimateHandler(estimateService service.EstimateService, auth *middleware.Auth) *EstimateHandler {
	return &EstimateHandler{estimateService: estimateService, auth: auth}
}

func (h *EstimateHandler) RegisterRoutes(router *gin.RouterGroup) {
	estimates := router.Group("/api/estimates", h.auth.RequireRole(middleware.AllRoles...))
	{
		estimates.GET("", h.ListEstimates)
		estimates.GET("/:id", h.GetEstimate)
		estimates.POST("", h.CreateEstimate)
		estimates.PUT("/:id", h.UpdateEstimate)
		estimates.PUT("/:id/send", h.SendEstimate)
		estimates.PUT("/:id/approve", h.ApproveEstimate)
		estimates.POST("/:id/convert", h.ConvertEstimate)
		estimates.DELETE("/:id", h.auth.RequireRole(middleware.RoleAdmin), h.DeleteEstimate)
	}
}

// ListEstimates returns a paginated list of estimates
// @Summary      List estimates
// @Tags         estimates
// @Security     BearerAuth
// @Produce      json
// @Param        client_id  query     string  false  "Filter by client"
// @Param        status     query     string  false  "Filter by status (DRAFT, SENT, APPROVED, CONVERTED)"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Number of items per page (default 20)"
// @Success      200        {object}  response.Response{data=[]service.EstimateResponse}
// @Failure      400        {object}  response.Response
// @Router       /api/estimates [get]
func (h *EstimateHandler) ListEstimates(c *gin.Context) {
	p := pagination.Parse(c)

	estimates, total, err := h.estimateService.ListEstimates(c.Request.Context(), service.EstimateFilter{
		ClientID: c.Query("client_id"),
		Status:   c.Query("status"),
		Page:     p.Page,
		Limit:    p.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, estimates, p.Page, p.Limit, total))
}

// GetEstimate returns a single estimate
// @Summary      Get estimate
// @Tags         estimates
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Estimate ID"
// @Success      200  {object}  response.Response{data=service.EstimateResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/estimates/{id} [get]
func (h *EstimateHandler) GetEstimate(c *gin.Context) {
	estimate, err := h.estimateService.GetEstimate(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, estimate))
}

// CreateEstimate drafts a new estimate with flat 18% GST
// @Summary      Create estimate
// @Tags         estimates
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateEstimateRequest  true  "Estimate payload"
// @Success      201      {object}  response.Response{data=service.EstimateResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/estimates [post]
func (h *EstimateHandler) CreateEstimate(c *gin.Context) {
	var req service.CreateEstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	estimate, err := h.estimateService.CreateEstimate(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, estimate))
}

// UpdateEstimate edits a non-converted estimate
// @Summary      Update estimate
// @Tags         estimates
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Estimate ID"
// @Param        payload  body      service.UpdateEstimateRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=service.EstimateResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/estimates/{id} [put]
func (h *EstimateHandler) UpdateEstimate(c *gin.Context) {
	var req service.UpdateEstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	estimate, err := h.estimateService.UpdateEstimate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, estimate))
}

// SendEstimate marks a draft estimate as sent
// @Summary      Send estimate
// @Tags         estimates
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Estimate ID"
// @Success      200  {object}  response.Response{data=service.EstimateResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/estimates/{id}/send [put]
func (h *EstimateHandler) SendEstimate(c *gin.Context) {
	estimate, err := h.estimateService.SendEstimate(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, estimate))
}

// ApproveEstimate marks an estimate as approved by the client
// @Summary      Approve estimate
// @Tags         estimates
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Estimate ID"
// @Success      200  {object}  response.Response{data=service.EstimateResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/estimates/{id}/approve [put]
func (h *EstimateHandler) ApproveEstimate(c *gin.Context) {
	estimate, err := h.estimateService.ApproveEstimate(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, estimate))
}

// ConvertEstimate issues an invoice from an approved estimate
// @Summary      Convert estimate to invoice
// @Tags         estimates
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                          true   "Estimate ID"
// @Param        payload  body      service.ConvertEstimateRequest  false  "Jurisdiction and due date"
// @Success      201      {object}  response.Response{data=service.ConversionResponse}
// @Failure      409      {object}  response.Response "Estimate is not approved or already converted"
// @Failure      503      {object}  response.Response "Invoice numbering exhausted"
// @Router       /api/estimates/{id}/convert [post]
func (h *EstimateHandler) ConvertEstimate(c *gin.Context) {
	var req service.ConvertEstimateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}
	}

	result, err := h.estimateService.ConvertToInvoice(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// DeleteEstimate removes an estimate that has not been converted
// @Summary      Delete estimate
// @Tags         estimates
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Estimate ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/estimates/{id} [delete]
func (h *EstimateHandler) DeleteEstimate(c *gin.Context) {
	if err := h.estimateService.DeleteEstimate(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Estimate deleted successfully"}))
}
