package outlets

import (
	"github.com/gin-gonic/gin"

	"walkin/internal/shared/middleware"
)

func SetupOutletRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	staff := rg.Group("/staff/outlets")
	staff.Use(auth, middleware.RequireStaff())
	{
		staff.GET("/:outlet_id", controller.GetOutlet)                                            // GET /api/v1/staff/outlets/:outlet_id
		staff.GET("/:outlet_id/tables", controller.ListTables)                                    // GET /api/v1/staff/outlets/:outlet_id/tables
		staff.PATCH("/:outlet_id/tables/:table_id", controller.SetTableActive)                    // PATCH /api/v1/staff/outlets/:outlet_id/tables/:table_id
		staff.PATCH("/:outlet_id/fields", middleware.RequireAdmin(), controller.ApplyFieldChange) // PATCH /api/v1/staff/outlets/:outlet_id/fields
	}

	admin := rg.Group("/admin/outlets")
	admin.Use(auth, middleware.RequireAdmin())
	{
		admin.POST("", controller.CreateOutlet)                             // POST /api/v1/admin/outlets
		admin.POST("/:outlet_id/tables", controller.CreateTable)            // POST /api/v1/admin/outlets/:outlet_id/tables
		admin.POST("/:outlet_id/peak-hours", controller.CreatePeakHourRule) // POST /api/v1/admin/outlets/:outlet_id/peak-hours
	}
}
