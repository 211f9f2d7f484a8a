package outlets

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"walkin/internal/shared/utils/response"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

func (c *Controller) CreateOutlet(ctx *gin.Context) {
	var req CreateOutletRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	outlet, err := c.service.CreateOutlet(ctx.Request.Context(), req)
	if err != nil {
		response.RespondError(ctx, "Failed to create outlet", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Outlet created successfully", outlet, nil)
}

func (c *Controller) GetOutlet(ctx *gin.Context) {
	outletID, ok := parseID(ctx, "outlet_id")
	if !ok {
		return
	}

	outlet, err := c.service.GetOutlet(ctx.Request.Context(), outletID)
	if err != nil {
		response.RespondError(ctx, "Failed to get outlet", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Outlet retrieved successfully", outlet, nil)
}

func (c *Controller) CreateTable(ctx *gin.Context) {
	outletID, ok := parseID(ctx, "outlet_id")
	if !ok {
		return
	}

	var req CreateTableRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	table, err := c.service.CreateTable(ctx.Request.Context(), outletID, req)
	if err != nil {
		response.RespondError(ctx, "Failed to create table", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Table created successfully", table, nil)
}

func (c *Controller) ListTables(ctx *gin.Context) {
	outletID, ok := parseID(ctx, "outlet_id")
	if !ok {
		return
	}

	tables, err := c.service.ListTables(ctx.Request.Context(), outletID)
	if err != nil {
		response.RespondError(ctx, "Failed to list tables", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Tables retrieved successfully", tables, nil)
}

func (c *Controller) SetTableActive(ctx *gin.Context) {
	outletID, ok := parseID(ctx, "outlet_id")
	if !ok {
		return
	}
	tableID, ok := parseID(ctx, "table_id")
	if !ok {
		return
	}

	var req SetTableActiveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	table, err := c.service.SetTableActive(ctx.Request.Context(), outletID, tableID, *req.Active)
	if err != nil {
		response.RespondError(ctx, "Failed to update table", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Table updated successfully", table, nil)
}

func (c *Controller) CreatePeakHourRule(ctx *gin.Context) {
	outletID, ok := parseID(ctx, "outlet_id")
	if !ok {
		return
	}

	var req CreatePeakHourRuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	rule, err := c.service.CreatePeakHourRule(ctx.Request.Context(), outletID, req)
	if err != nil {
		response.RespondError(ctx, "Failed to create peak hour rule", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Peak hour rule created successfully", rule, nil)
}

// ApplyFieldChange handles PATCH /staff/outlets/:outlet_id/fields
func (c *Controller) ApplyFieldChange(ctx *gin.Context) {
	outletID, ok := parseID(ctx, "outlet_id")
	if !ok {
		return
	}

	var req FieldChangeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	change, err := ParseFieldChange(req.Field, req.Value)
	if err != nil {
		response.RespondError(ctx, "Invalid field change", err)
		return
	}

	outlet, err := c.service.ApplyFieldChange(ctx.Request.Context(), outletID, change)
	if err != nil {
		response.RespondError(ctx, "Failed to apply field change", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Outlet updated successfully", outlet, nil)
}

func parseID(ctx *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param(param))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid "+param, nil, err.Error())
		return uuid.Nil, false
	}
	return id, true
}
