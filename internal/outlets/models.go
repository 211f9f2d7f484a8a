package outlets

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"walkin/internal/allocation"
)

// Outlet is one restaurant location with its walk-in settings
type Outlet struct {
	ID                        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name                      string    `gorm:"not null" json:"name"`
	Timezone                  string    `gorm:"not null" json:"timezone"`
	DefaultReservationPercent int       `gorm:"not null" json:"default_reservation_percent"`
	QueueEnabled              bool      `gorm:"not null" json:"queue_enabled"`
	MaxPartySize              int       `gorm:"not null" json:"max_party_size"`
	CreatedAt                 time.Time `json:"created_at"`
	UpdatedAt                 time.Time `json:"updated_at"`

	Tables        []Table        `gorm:"foreignKey:OutletID" json:"tables,omitempty"`
	PeakHourRules []PeakHourRule `gorm:"foreignKey:OutletID" json:"peak_hour_rules,omitempty"`
}

// Table is a physical table of an outlet
type Table struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OutletID  uuid.UUID `gorm:"type:uuid;not null;index" json:"outlet_id"`
	Number    string    `gorm:"not null" json:"number"`
	Capacity  int       `gorm:"not null" json:"capacity"`
	Section   string    `json:"section"`
	Active    bool      `gorm:"not null;index" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Table) TableName() string {
	return "outlet_tables"
}

// ToAllocation converts to the allocation view
func (t Table) ToAllocation() allocation.Table {
	return allocation.Table{
		ID:       t.ID,
		Number:   t.Number,
		Capacity: t.Capacity,
		Section:  t.Section,
		Active:   t.Active,
	}
}

// PeakHourRule overrides the reservation percentage during a weekly time window.
// A window whose end is before its start runs past midnight into the next day.
type PeakHourRule struct {
	ID                 uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	OutletID           uuid.UUID    `gorm:"type:uuid;not null;index" json:"outlet_id"`
	DayOfWeek          time.Weekday `gorm:"not null" json:"day_of_week"`
	StartTime          string       `gorm:"size:5;not null" json:"start_time"` // HH:MM
	EndTime            string       `gorm:"size:5;not null" json:"end_time"`   // HH:MM
	ReservationPercent int          `gorm:"not null" json:"reservation_percent"`
	Active             bool         `gorm:"not null" json:"active"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// QueueSettings is what the queue engine needs to know about an outlet
type QueueSettings struct {
	OutletID     uuid.UUID
	QueueEnabled bool
	MaxPartySize int
	Location     *time.Location
}

// Requests

type CreateOutletRequest struct {
	Name                      string `json:"name" binding:"required"`
	Timezone                  string `json:"timezone"`
	DefaultReservationPercent int    `json:"default_reservation_percent" binding:"min=0,max=100"`
	QueueEnabled              *bool  `json:"queue_enabled"`
	MaxPartySize              int    `json:"max_party_size" binding:"omitempty,min=1"`
}

type CreateTableRequest struct {
	Number   string `json:"number" binding:"required"`
	Capacity int    `json:"capacity" binding:"required,min=1"`
	Section  string `json:"section"`
}

type SetTableActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

type CreatePeakHourRuleRequest struct {
	DayOfWeek          int    `json:"day_of_week" binding:"min=0,max=6"`
	StartTime          string `json:"start_time" binding:"required"`
	EndTime            string `json:"end_time" binding:"required"`
	ReservationPercent int    `json:"reservation_percent" binding:"min=0,max=100"`
}

type FieldChangeRequest struct {
	Field string          `json:"field" binding:"required"`
	Value json.RawMessage `json:"value" binding:"required"`
}

// parseClock turns HH:MM into minutes after midnight
func parseClock(value string) (int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", value)
	}
	return t.Hour()*60 + t.Minute(), nil
}
