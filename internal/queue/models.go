package queue

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a queue entry
type Status string

const (
	StatusWaiting   Status = "WAITING"
	StatusCalled    Status = "CALLED"
	StatusSeated    Status = "SEATED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusNoShow    Status = "NO_SHOW"
	StatusDayEnd    Status = "DAY_END"
)

var transitions = map[Status][]Status{
	StatusWaiting:   {StatusCalled, StatusCancelled, StatusNoShow},
	StatusCalled:    {StatusSeated, StatusCancelled, StatusNoShow},
	StatusSeated:    {StatusCompleted},
	StatusCompleted: {},
	StatusCancelled: {},
	StatusNoShow:    {},
	StatusDayEnd:    {},
}

// IsValid checks if the status is one of the known values
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo checks if the status can transition to the target status.
// DAY_END is never a target here; end-of-day cleanup sets it directly.
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true for states no transition leaves
func (s Status) IsTerminal() bool {
	return s.IsValid() && len(transitions[s]) == 0
}

// IsOpen returns true while the party is still waiting for or walking to a table
func (s Status) IsOpen() bool {
	return s == StatusWaiting || s == StatusCalled
}

// AssignmentStatus represents the state of a table assignment
type AssignmentStatus string

const (
	AssignmentAssigned  AssignmentStatus = "ASSIGNED"
	AssignmentSeated    AssignmentStatus = "SEATED"
	AssignmentCompleted AssignmentStatus = "COMPLETED"
	AssignmentCancelled AssignmentStatus = "CANCELLED"
	AssignmentNoShow    AssignmentStatus = "NO_SHOW"
)

// IsActive reports whether the table is still occupied by the assignment
func (s AssignmentStatus) IsActive() bool {
	return s == AssignmentAssigned || s == AssignmentSeated
}

// QueueEntry is one walk-in party in an outlet's queue
type QueueEntry struct {
	ID                   uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	OutletID             uuid.UUID  `json:"outlet_id" gorm:"type:uuid;not null;uniqueIndex:idx_queue_entries_code,priority:1;index:idx_queue_entries_outlet_status,priority:1"`
	QueueDate            string     `json:"queue_date" gorm:"type:varchar(10);not null;uniqueIndex:idx_queue_entries_code,priority:2"`
	Code                 string     `json:"code" gorm:"type:varchar(16);not null;uniqueIndex:idx_queue_entries_code,priority:3"`
	CustomerName         string     `json:"customer_name" gorm:"not null"`
	Phone                string     `json:"phone"`
	PartySize            int        `json:"party_size" gorm:"not null"`
	Notes                string     `json:"notes"`
	Status               Status     `json:"status" gorm:"type:varchar(20);not null;index:idx_queue_entries_outlet_status,priority:2"`
	Position             int        `json:"position" gorm:"not null"`
	IsHeld               bool       `json:"is_held" gorm:"not null"`
	HeldSince            *time.Time `json:"held_since,omitempty"`
	EstimatedWaitMinutes int        `json:"estimated_wait_minutes" gorm:"not null"`
	QueuedAt             time.Time  `json:"queued_at" gorm:"not null"`
	CalledAt             *time.Time `json:"called_at,omitempty"`
	SeatedAt             *time.Time `json:"seated_at,omitempty"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt            time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	Assignments []QueueTableAssignment `json:"assignments,omitempty" gorm:"foreignKey:EntryID"`
}

// ActiveAssignments returns the assignments still holding a table
func (e *QueueEntry) ActiveAssignments() []QueueTableAssignment {
	var active []QueueTableAssignment
	for _, a := range e.Assignments {
		if a.Status.IsActive() {
			active = append(active, a)
		}
	}
	return active
}

// QueueTableAssignment links an entry to one table it was offered
type QueueTableAssignment struct {
	ID          uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	EntryID     uuid.UUID        `json:"entry_id" gorm:"type:uuid;not null;index"`
	OutletID    uuid.UUID        `json:"outlet_id" gorm:"type:uuid;not null;index"`
	TableID     uuid.UUID        `json:"table_id" gorm:"type:uuid;not null;index"`
	TableNumber string           `json:"table_number" gorm:"not null"`
	Status      AssignmentStatus `json:"status" gorm:"type:varchar(20);not null"`
	AssignedBy  string           `json:"assigned_by"`
	AssignedAt  time.Time        `json:"assigned_at" gorm:"not null"`
	SeatedAt    *time.Time       `json:"seated_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
}

// StatusChange is an append-only audit row
type StatusChange struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	EntryID    uuid.UUID `json:"entry_id" gorm:"type:uuid;not null;index"`
	OutletID   uuid.UUID `json:"outlet_id" gorm:"type:uuid;not null;index"`
	FromStatus Status    `json:"from_status" gorm:"type:varchar(20);not null"`
	ToStatus   Status    `json:"to_status" gorm:"type:varchar(20);not null"`
	Actor      string    `json:"actor"`
	Reason     string    `json:"reason"`
	ChangedAt  time.Time `json:"changed_at" gorm:"not null"`
}

// Request/Response Models

// AdmitRequest represents a walk-in party joining the queue
type AdmitRequest struct {
	CustomerName string `json:"customer_name" validate:"required,max=100"`
	Phone        string `json:"phone" validate:"omitempty,max=32"`
	PartySize    int    `json:"party_size" validate:"required,min=1"`
	Notes        string `json:"notes" validate:"max=500"`
}

// UpdateStatusRequest moves an entry along the state machine
type UpdateStatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=CALLED SEATED COMPLETED CANCELLED NO_SHOW"`
	Reason string `json:"reason" validate:"max=255"`
}

// CancelRequest carries an optional reason
type CancelRequest struct {
	Reason string `json:"reason" validate:"max=255"`
}

// AssignTableRequest offers one or more joined tables to an entry
type AssignTableRequest struct {
	TableIDs          []uuid.UUID `json:"table_ids" validate:"required,min=1,dive,required"`
	ConfirmUndersized bool        `json:"confirm_undersized"`
}

// ListFilter narrows ListEntries
type ListFilter struct {
	Statuses  []Status
	Date      string // YYYY-MM-DD, outlet local; empty means today
	HeldOnly  bool
	PartySize int
}

// Summary is the staff dashboard view of an outlet's queue
type Summary struct {
	OutletID             uuid.UUID      `json:"outlet_id"`
	Date                 string         `json:"date"`
	Waiting              int            `json:"waiting"`
	Held                 int            `json:"held"`
	Called               int            `json:"called"`
	Seated               int            `json:"seated"`
	Completed            int            `json:"completed"`
	Cancelled            int            `json:"cancelled"`
	NoShow               int            `json:"no_show"`
	DayEnd               int            `json:"day_end"`
	AverageWaitMinutes   int            `json:"average_wait_minutes"`
	LongestWaitMinutes   int            `json:"longest_wait_minutes"`
	WaitingByPartySize   map[int]int    `json:"waiting_by_party_size"`
	CountsByStatus       map[Status]int `json:"counts_by_status"`
	QueueEnabled         bool           `json:"queue_enabled"`
	QueuePoolTableCount  int            `json:"queue_pool_table_count"`
	QueuePoolCapacity    int            `json:"queue_pool_capacity"`
	ReservationPercent   int            `json:"reservation_percent"`
	OccupiedQueueTables  int            `json:"occupied_queue_tables"`
	AvailableQueueTables int            `json:"available_queue_tables"`
}

// RecommendationResponse is the staff view of a table recommendation
type RecommendationResponse struct {
	TableID     uuid.UUID   `json:"table_id"`
	TableNumber string      `json:"table_number"`
	Capacity    int         `json:"capacity"`
	Entry       *QueueEntry `json:"entry"`
	Reason      string      `json:"reason"`
	TooSmall    bool        `json:"too_small"`
}

// Configuration Constants

const (
	// CodeFormat renders the per-day sequence into a human-readable code
	CodeFormat = "Q%03d"

	// DateLayout is the outlet-local queue day
	DateLayout = "2006-01-02"

	ReasonAdmitted   = "admitted"
	ReasonCancelled  = "cancelled"
	ReasonCalled     = "called"
	ReasonStatus     = "status_changed"
	ReasonHeld       = "held"
	ReasonUnheld     = "unheld"
	ReasonAssigned   = "table_assigned"
	ReasonEndOfDay   = "end_of_day"
	ReasonOverridden = "undersized_override"
)
