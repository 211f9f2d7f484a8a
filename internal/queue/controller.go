package queue

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"walkin/internal/shared/middleware"
	"walkin/internal/shared/utils/response"
)

type Controller struct {
	service   Service
	validator *validator.Validate
}

func NewController(service Service) *Controller {
	return &Controller{
		service:   service,
		validator: validator.New(),
	}
}

// Admit joins a walk-in party to an outlet's queue
func (c *Controller) Admit(ctx *gin.Context) {
	outletID, ok := parseID(ctx, "outlet_id")
	if !ok {
		return
	}

	var req AdmitRequest
	if !c.bind(ctx, &req) {
		return
	}

	entry, err := c.service.Admit(ctx.Request.Context(), outletID, req, middleware.ActorID(ctx, ActorCustomer))
	if err != nil {
		response.RespondError(ctx, "Failed to join queue", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Joined queue successfully", entry, nil)
}

func (c *Controller) GetEntry(ctx *gin.Context) {
	entryID, ok := parseID(ctx, "entry_id")
	if !ok {
		return
	}

	entry, err := c.service.GetEntry(ctx.Request.Context(), entryID)
	if err != nil {
		response.RespondError(ctx, "Failed to get queue entry", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Queue entry retrieved successfully", entry, nil)
}

func (c *Controller) GetEntryByCode(ctx *gin.Context) {
	outletID, ok := parseID(ctx, "outlet_id")
	if !ok {
		return
	}

	entry, err := c.service.GetEntryByCode(ctx.Request.Context(), outletID, ctx.Param("code"))
	if err != nil {
		response.RespondError(ctx, "Failed to get queue entry", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Queue entry retrieved successfully", entry, nil)
}

func (c *Controller) Cancel(ctx *gin.Context) {
	entryID, ok := parseID(ctx, "entry_id")
	if !ok {
		return
	}

	var req CancelRequest
	if ctx.Request.ContentLength > 0 && !c.bind(ctx, &req) {
		return
	}

	entry, err := c.service.Cancel(ctx.Request.Context(), entryID, middleware.ActorID(ctx, ActorCustomer), req.Reason)
	if err != nil {
		response.RespondError(ctx, "Failed to cancel queue entry", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Queue entry cancelled successfully", entry, nil)
}

func (c *Controller) UpdateStatus(ctx *gin.Context) {
	entryID, ok := parseID(ctx, "entry_id")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !c.bind(ctx, &req) {
		return
	}

	entry, err := c.service.UpdateStatus(ctx.Request.Context(), entryID, req.Status, middleware.ActorID(ctx, ActorSystem), req.Reason)
	if err != nil {
		response.RespondError(ctx, "Failed to update queue entry", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Queue entry updated successfully", entry, nil)
}

func (c *Controller) Hold(ctx *gin.Context) {
	entryID, ok := parseID(ctx, "entry_id")
	if !ok {
		return
	}

	entry, err := c.service.Hold(ctx.Request.Context(), entryID, middleware.ActorID(ctx, ActorSystem))
	if err != nil {
		response.RespondError(ctx, "Failed to hold queue entry", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Queue entry held", entry, nil)
}

func (c *Controller) Unhold(ctx *gin.Context) {
	entryID, ok := parseID(ctx, "entry_id")
	if !ok {
		return
	}

	entry, err := c.service.Unhold(ctx.Request.Context(), entryID, middleware.ActorID(ctx, ActorSystem))
	if err != nil {
		response.RespondError(ctx, "Failed to release queue entry", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Queue entry moved to the front", entry, nil)
}

func (c *Controller) AssignTable(ctx *gin.Context) {
	entryID, ok := parseID(ctx, "entry_id")
	if !ok {
		return
	}

	var req AssignTableRequest
	if !c.bind(ctx, &req) {
		return
	}

	entry, err := c.service.AssignTable(ctx.Request.Context(), entryID, req, middleware.ActorID(ctx, ActorSystem))
	if err != nil {
		response.RespondError(ctx, "Failed to assign table", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Table assigned successfully", entry, nil)
}

func (c *Controller) CallNext(ctx *gin.Context) {
	outletID, ok := parseID(ctx, "outlet_id")
	if !ok {
		return
	}

	entry, err := c.service.CallNext(ctx.Request.Context(), outletID, middleware.ActorID(ctx, ActorSystem))
	if err != nil {
		response.RespondError(ctx, "Failed to call next party", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Next party called", entry, nil)
}

// ListEntries supports ?status=WAITING,CALLED&date=YYYY-MM-DD&held=true&party_size=4
func (c *Controller) ListEntries(ctx *gin.Context) {
	outletID, ok := parseID(ctx, "outlet_id")
	if !ok {
		return
	}

	filter := ListFilter{Date: ctx.Query("date")}
	if raw := ctx.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				filter.Statuses = append(filter.Statuses, Status(strings.ToUpper(part)))
			}
		}
	}
	if held, err := strconv.ParseBool(ctx.DefaultQuery("held", "false")); err == nil {
		filter.HeldOnly = held
	}
	if size, err := strconv.Atoi(ctx.Query("party_size")); err == nil && size > 0 {
		filter.PartySize = size
	}

	entries, err := c.service.ListEntries(ctx.Request.Context(), outletID, filter)
	if err != nil {
		response.RespondError(ctx, "Failed to list queue entries", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Queue entries retrieved successfully", gin.H{
		"entries": entries,
		"count":   len(entries),
	}, nil)
}

func (c *Controller) GetSummary(ctx *gin.Context) {
	outletID, ok := parseID(ctx, "outlet_id")
	if !ok {
		return
	}

	summary, err := c.service.GetSummary(ctx.Request.Context(), outletID)
	if err != nil {
		response.RespondError(ctx, "Failed to get queue summary", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Queue summary retrieved successfully", summary, nil)
}

func (c *Controller) GetAllocation(ctx *gin.Context) {
	outletID, ok := parseID(ctx, "outlet_id")
	if !ok {
		return
	}

	snapshot, err := c.service.GetAllocation(ctx.Request.Context(), outletID)
	if err != nil {
		response.RespondError(ctx, "Failed to compute table allocation", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Table allocation computed successfully", snapshot, nil)
}

func (c *Controller) GetRecommendation(ctx *gin.Context) {
	outletID, ok := parseID(ctx, "outlet_id")
	if !ok {
		return
	}
	tableID, err := uuid.Parse(ctx.Query("table_id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid table_id", nil, err.Error())
		return
	}

	rec, err := c.service.GetRecommendation(ctx.Request.Context(), outletID, tableID)
	if err != nil {
		response.RespondError(ctx, "Failed to recommend a party", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Recommendation computed successfully", rec, nil)
}

func (c *Controller) EndOfDay(ctx *gin.Context) {
	outletID, ok := parseID(ctx, "outlet_id")
	if !ok {
		return
	}

	closed, err := c.service.EndOfDayCleanup(ctx.Request.Context(), outletID)
	if err != nil {
		response.RespondError(ctx, "Failed to close the queue", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Queue closed for the day", gin.H{"closed": closed}, nil)
}

func (c *Controller) bind(ctx *gin.Context, req interface{}) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return false
	}
	if err := c.validator.Struct(req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return false
	}
	return true
}

func parseID(ctx *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param(param))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid "+param, nil, err.Error())
		return uuid.Nil, false
	}
	return id, true
}
