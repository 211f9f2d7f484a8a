package outlets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"walkin/internal/shared/apperr"
)

// Repository interface for outlet catalog operations
type Repository interface {
	// Outlets
	CreateOutlet(ctx context.Context, outlet *Outlet) error
	GetOutletByID(ctx context.Context, id uuid.UUID) (*Outlet, error)
	ListOutletIDs(ctx context.Context) ([]uuid.UUID, error)
	UpdateOutlet(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error

	// Tables
	CreateTable(ctx context.Context, table *Table) error
	GetTableByID(ctx context.Context, id uuid.UUID) (*Table, error)
	ListTables(ctx context.Context, outletID uuid.UUID) ([]Table, error)
	ListActiveTables(ctx context.Context, outletID uuid.UUID) ([]Table, error)
	SetTableActive(ctx context.Context, id uuid.UUID, active bool) error

	// Peak hour rules
	CreatePeakHourRule(ctx context.Context, rule *PeakHourRule) error
	ListActivePeakHourRules(ctx context.Context, outletID uuid.UUID) ([]PeakHourRule, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new outlet repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

//  OUTLETS

func (r *repository) CreateOutlet(ctx context.Context, outlet *Outlet) error {
	if outlet.ID == uuid.Nil {
		outlet.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Omit("Tables", "PeakHourRules").Create(outlet).Error; err != nil {
		return fmt.Errorf("failed to create outlet: %w", err)
	}
	return nil
}

func (r *repository) GetOutletByID(ctx context.Context, id uuid.UUID) (*Outlet, error) {
	var outlet Outlet
	err := r.db.WithContext(ctx).First(&outlet, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("outlet %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get outlet: %w", err)
	}
	return &outlet, nil
}

func (r *repository) ListOutletIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&Outlet{}).Order("created_at ASC").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list outlets: %w", err)
	}
	return ids, nil
}

func (r *repository) UpdateOutlet(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&Outlet{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update outlet: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("outlet %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

//  TABLES

func (r *repository) CreateTable(ctx context.Context, table *Table) error {
	if table.ID == uuid.Nil {
		table.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(table).Error; err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

func (r *repository) GetTableByID(ctx context.Context, id uuid.UUID) (*Table, error) {
	var table Table
	err := r.db.WithContext(ctx).First(&table, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("table %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get table: %w", err)
	}
	return &table, nil
}

func (r *repository) ListTables(ctx context.Context, outletID uuid.UUID) ([]Table, error) {
	var tables []Table
	err := r.db.WithContext(ctx).
		Where("outlet_id = ?", outletID).
		Order("number ASC").
		Find(&tables).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return tables, nil
}

func (r *repository) ListActiveTables(ctx context.Context, outletID uuid.UUID) ([]Table, error) {
	var tables []Table
	err := r.db.WithContext(ctx).
		Where("outlet_id = ? AND active = ?", outletID, true).
		Order("number ASC").
		Find(&tables).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active tables: %w", err)
	}
	return tables, nil
}

func (r *repository) SetTableActive(ctx context.Context, id uuid.UUID, active bool) error {
	result := r.db.WithContext(ctx).Model(&Table{}).Where("id = ?", id).
		Updates(map[string]interface{}{"active": active, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return fmt.Errorf("failed to update table: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("table %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

//  PEAK HOUR RULES

func (r *repository) CreatePeakHourRule(ctx context.Context, rule *PeakHourRule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(rule).Error; err != nil {
		return fmt.Errorf("failed to create peak hour rule: %w", err)
	}
	return nil
}

func (r *repository) ListActivePeakHourRules(ctx context.Context, outletID uuid.UUID) ([]PeakHourRule, error) {
	var rules []PeakHourRule
	err := r.db.WithContext(ctx).
		Where("outlet_id = ? AND active = ?", outletID, true).
		Order("day_of_week ASC, start_time ASC").
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list peak hour rules: %w", err)
	}
	return rules, nil
}
