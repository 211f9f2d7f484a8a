package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"walkin/internal/shared/apperr"
	"walkin/internal/waittime"
)

// PositionUpdate is one renumbered entry
type PositionUpdate struct {
	EntryID              uuid.UUID
	Position             int
	EstimatedWaitMinutes int
}

// Repository interface defines the contract for queue data operations
type Repository interface {
	// Entries
	CreateEntry(ctx context.Context, entry *QueueEntry) error
	SaveEntry(ctx context.Context, entry *QueueEntry) error
	GetEntryByID(ctx context.Context, id uuid.UUID) (*QueueEntry, error)
	GetEntryByCode(ctx context.Context, outletID uuid.UUID, date, code string) (*QueueEntry, error)
	ListEntries(ctx context.Context, outletID uuid.UUID, filter ListFilter) ([]QueueEntry, error)
	ListWaiting(ctx context.Context, outletID uuid.UUID) ([]QueueEntry, error)
	ListOpen(ctx context.Context, outletID uuid.UUID) ([]QueueEntry, error)
	CountByDate(ctx context.Context, outletID uuid.UUID, date string) (int, error)
	CountByStatus(ctx context.Context, outletID uuid.UUID) (map[Status]int, error)
	UpdatePositions(ctx context.Context, updates []PositionUpdate) error

	// Assignments
	CreateAssignments(ctx context.Context, assignments []QueueTableAssignment) error
	UpdateActiveAssignments(ctx context.Context, entryID uuid.UUID, to AssignmentStatus, at time.Time) error
	FindActiveAssignments(ctx context.Context, tableIDs []uuid.UUID) ([]QueueTableAssignment, error)

	// Audit
	CreateStatusChange(ctx context.Context, change *StatusChange) error

	// History
	SeatingHistory(ctx context.Context, outletID uuid.UUID, since time.Time) ([]waittime.Sample, error)

	// WithinTx runs fn against a repository bound to one transaction
	WithinTx(ctx context.Context, fn func(tx Repository) error) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new queue repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithinTx(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&repository{db: tx})
	})
}

//  ENTRIES

func (r *repository) CreateEntry(ctx context.Context, entry *QueueEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create queue entry: %w", err)
	}
	return nil
}

func (r *repository) SaveEntry(ctx context.Context, entry *QueueEntry) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(entry).Error; err != nil {
		return fmt.Errorf("failed to save queue entry: %w", err)
	}
	return nil
}

func (r *repository) GetEntryByID(ctx context.Context, id uuid.UUID) (*QueueEntry, error) {
	var entry QueueEntry
	err := r.db.WithContext(ctx).
		Preload("Assignments", func(db *gorm.DB) *gorm.DB { return db.Order("assigned_at ASC") }).
		First(&entry, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("queue entry %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get queue entry: %w", err)
	}
	return &entry, nil
}

func (r *repository) GetEntryByCode(ctx context.Context, outletID uuid.UUID, date, code string) (*QueueEntry, error) {
	var entry QueueEntry
	err := r.db.WithContext(ctx).
		Preload("Assignments").
		Where("outlet_id = ? AND queue_date = ? AND code = ?", outletID, date, code).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("queue code %s: %w", code, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get queue entry by code: %w", err)
	}
	return &entry, nil
}

func (r *repository) ListEntries(ctx context.Context, outletID uuid.UUID, filter ListFilter) ([]QueueEntry, error) {
	query := r.db.WithContext(ctx).Where("outlet_id = ?", outletID)
	if filter.Date != "" {
		query = query.Where("queue_date = ?", filter.Date)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.HeldOnly {
		query = query.Where("is_held = ?", true)
	}
	if filter.PartySize > 0 {
		query = query.Where("party_size = ?", filter.PartySize)
	}

	var entries []QueueEntry
	err := query.
		Preload("Assignments").
		Order("CASE WHEN position = 0 THEN 1 ELSE 0 END ASC").
		Order("position ASC").
		Order("queued_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list queue entries: %w", err)
	}
	return entries, nil
}

func (r *repository) ListWaiting(ctx context.Context, outletID uuid.UUID) ([]QueueEntry, error) {
	var entries []QueueEntry
	err := r.db.WithContext(ctx).
		Where("outlet_id = ? AND status = ?", outletID, StatusWaiting).
		Order("position ASC").
		Order("queued_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list waiting entries: %w", err)
	}
	return entries, nil
}

func (r *repository) ListOpen(ctx context.Context, outletID uuid.UUID) ([]QueueEntry, error) {
	var entries []QueueEntry
	err := r.db.WithContext(ctx).
		Where("outlet_id = ? AND status IN ?", outletID, []Status{StatusWaiting, StatusCalled}).
		Order("queued_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list open entries: %w", err)
	}
	return entries, nil
}

func (r *repository) CountByDate(ctx context.Context, outletID uuid.UUID, date string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&QueueEntry{}).
		Where("outlet_id = ? AND queue_date = ?", outletID, date).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return int(count), nil
}

// CountByStatus returns live counts; held entries are reported under their WAITING status
func (r *repository) CountByStatus(ctx context.Context, outletID uuid.UUID) (map[Status]int, error) {
	var rows []struct {
		Status Status
		Count  int
	}
	err := r.db.WithContext(ctx).Model(&QueueEntry{}).
		Select("status, COUNT(*) AS count").
		Where("outlet_id = ? AND status IN ?", outletID, []Status{StatusWaiting, StatusCalled, StatusSeated}).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count entries by status: %w", err)
	}

	counts := make(map[Status]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *repository) UpdatePositions(ctx context.Context, updates []PositionUpdate) error {
	now := time.Now().UTC()
	for _, u := range updates {
		err := r.db.WithContext(ctx).Model(&QueueEntry{}).
			Where("id = ?", u.EntryID).
			Updates(map[string]interface{}{
				"position":               u.Position,
				"estimated_wait_minutes": u.EstimatedWaitMinutes,
				"updated_at":             now,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to update position of %s: %w", u.EntryID, err)
		}
	}
	return nil
}

//  ASSIGNMENTS

func (r *repository) CreateAssignments(ctx context.Context, assignments []QueueTableAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	for i := range assignments {
		if assignments[i].ID == uuid.Nil {
			assignments[i].ID = uuid.New()
		}
	}
	if err := r.db.WithContext(ctx).Create(&assignments).Error; err != nil {
		return fmt.Errorf("failed to create table assignments: %w", err)
	}
	return nil
}

func (r *repository) UpdateActiveAssignments(ctx context.Context, entryID uuid.UUID, to AssignmentStatus, at time.Time) error {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": at,
	}
	if to == AssignmentSeated {
		updates["seated_at"] = at
	} else {
		updates["completed_at"] = at
	}

	err := r.db.WithContext(ctx).Model(&QueueTableAssignment{}).
		Where("entry_id = ? AND status IN ?", entryID, []AssignmentStatus{AssignmentAssigned, AssignmentSeated}).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update assignments of %s: %w", entryID, err)
	}
	return nil
}

func (r *repository) FindActiveAssignments(ctx context.Context, tableIDs []uuid.UUID) ([]QueueTableAssignment, error) {
	if len(tableIDs) == 0 {
		return nil, nil
	}
	var assignments []QueueTableAssignment
	err := r.db.WithContext(ctx).
		Where("table_id IN ? AND status IN ?", tableIDs, []AssignmentStatus{AssignmentAssigned, AssignmentSeated}).
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find active assignments: %w", err)
	}
	return assignments, nil
}

//  AUDIT

func (r *repository) CreateStatusChange(ctx context.Context, change *StatusChange) error {
	if change.ID == uuid.Nil {
		change.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(change).Error; err != nil {
		return fmt.Errorf("failed to record status change: %w", err)
	}
	return nil
}

//  HISTORY

// SeatingHistory returns completed seatings queued since the given instant
func (r *repository) SeatingHistory(ctx context.Context, outletID uuid.UUID, since time.Time) ([]waittime.Sample, error) {
	var entries []QueueEntry
	err := r.db.WithContext(ctx).
		Select("party_size", "queued_at", "seated_at").
		Where("outlet_id = ? AND status = ? AND seated_at IS NOT NULL AND queued_at >= ?", outletID, StatusCompleted, since).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load seating history: %w", err)
	}

	samples := make([]waittime.Sample, 0, len(entries))
	for _, e := range entries {
		samples = append(samples, waittime.Sample{
			PartySize: e.PartySize,
			QueuedAt:  e.QueuedAt,
			SeatedAt:  *e.SeatedAt,
		})
	}
	return samples, nil
}
