package queue

import (
	"github.com/gin-gonic/gin"

	"walkin/internal/shared/middleware"
)

// SetupQueueRoutes configures the public customer routes and the staff console routes
func SetupQueueRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	rg.POST("/outlets/:outlet_id/queue", controller.Admit) // POST /api/v1/outlets/:outlet_id/queue

	public := rg.Group("/queue/entries")
	{
		public.GET("/:entry_id", controller.GetEntry)       // GET /api/v1/queue/entries/:entry_id
		public.POST("/:entry_id/cancel", controller.Cancel) // POST /api/v1/queue/entries/:entry_id/cancel
	}

	outlet := rg.Group("/staff/outlets/:outlet_id/queue")
	outlet.Use(auth, middleware.RequireStaff())
	{
		outlet.GET("", controller.ListEntries)                      // GET /api/v1/staff/outlets/:outlet_id/queue
		outlet.GET("/summary", controller.GetSummary)               // GET /api/v1/staff/outlets/:outlet_id/queue/summary
		outlet.GET("/allocation", controller.GetAllocation)         // GET /api/v1/staff/outlets/:outlet_id/queue/allocation
		outlet.GET("/recommendation", controller.GetRecommendation) // GET /api/v1/staff/outlets/:outlet_id/queue/recommendation?table_id=
		outlet.GET("/codes/:code", controller.GetEntryByCode)       // GET /api/v1/staff/outlets/:outlet_id/queue/codes/:code
		outlet.POST("/call-next", controller.CallNext)              // POST /api/v1/staff/outlets/:outlet_id/queue/call-next
		outlet.POST("/end-of-day", controller.EndOfDay)             // POST /api/v1/staff/outlets/:outlet_id/queue/end-of-day
	}

	entries := rg.Group("/staff/queue/entries")
	entries.Use(auth, middleware.RequireStaff())
	{
		entries.GET("/:entry_id", controller.GetEntry)             // GET /api/v1/staff/queue/entries/:entry_id
		entries.POST("/:entry_id/status", controller.UpdateStatus) // POST /api/v1/staff/queue/entries/:entry_id/status
		entries.POST("/:entry_id/hold", controller.Hold)           // POST /api/v1/staff/queue/entries/:entry_id/hold
		entries.POST("/:entry_id/unhold", controller.Unhold)       // POST /api/v1/staff/queue/entries/:entry_id/unhold
		entries.POST("/:entry_id/assign", controller.AssignTable)  // POST /api/v1/staff/queue/entries/:entry_id/assign
		entries.POST("/:entry_id/cancel", controller.Cancel)       // POST /api/v1/staff/queue/entries/:entry_id/cancel
	}
}
