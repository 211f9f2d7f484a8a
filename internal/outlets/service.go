package outlets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"walkin/internal/allocation"
	"walkin/internal/shared/apperr"
	"walkin/internal/shared/constants"
	"walkin/pkg/cache"
	"walkin/pkg/logger"
)

type Service interface {
	// Catalog reads consumed by the queue engine
	GetOutlet(ctx context.Context, id uuid.UUID) (*Outlet, error)
	ListOutletIDs(ctx context.Context) ([]uuid.UUID, error)
	GetActiveTables(ctx context.Context, outletID uuid.UUID) ([]allocation.Table, error)
	GetCurrentReservationAllocationPercent(ctx context.Context, outletID uuid.UUID, at time.Time) (int, error)
	GetQueueSettings(ctx context.Context, outletID uuid.UUID) (*QueueSettings, error)

	// Administration
	CreateOutlet(ctx context.Context, req CreateOutletRequest) (*Outlet, error)
	CreateTable(ctx context.Context, outletID uuid.UUID, req CreateTableRequest) (*Table, error)
	ListTables(ctx context.Context, outletID uuid.UUID) ([]Table, error)
	SetTableActive(ctx context.Context, outletID, tableID uuid.UUID, active bool) (*Table, error)
	CreatePeakHourRule(ctx context.Context, outletID uuid.UUID, req CreatePeakHourRuleRequest) (*PeakHourRule, error)
	ApplyFieldChange(ctx context.Context, outletID uuid.UUID, change FieldChange) (*Outlet, error)
}

// ServiceConfig holds outlet service defaults
type ServiceConfig struct {
	DefaultMaxPartySize int
	DefaultTimezone     string
	TablesTTL           time.Duration
}

// DefaultServiceConfig returns default configuration
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		DefaultMaxPartySize: 20,
		DefaultTimezone:     "UTC",
		TablesTTL:           constants.TTL_OUTLET_TABLES,
	}
}

type service struct {
	repo   Repository
	cache  cache.Service
	config *ServiceConfig
	logger *logger.Logger
}

// NewService creates an outlet service. cacheService may be nil.
func NewService(repo Repository, cacheService cache.Service, config *ServiceConfig, log *logger.Logger) Service {
	if config == nil {
		config = DefaultServiceConfig()
	}
	return &service{
		repo:   repo,
		cache:  cacheService,
		config: config,
		logger: log,
	}
}

func (s *service) GetOutlet(ctx context.Context, id uuid.UUID) (*Outlet, error) {
	if s.cache == nil {
		return s.repo.GetOutletByID(ctx, id)
	}

	var outlet Outlet
	err := s.cache.GetOrSet(ctx, constants.BuildOutletDetailKey(id.String()), constants.TTL_OUTLET_DETAIL,
		func() (interface{}, error) {
			return s.repo.GetOutletByID(ctx, id)
		}, &outlet)
	if err != nil {
		return nil, err
	}
	return &outlet, nil
}

func (s *service) ListOutletIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.repo.ListOutletIDs(ctx)
}

func (s *service) GetActiveTables(ctx context.Context, outletID uuid.UUID) ([]allocation.Table, error) {
	fetch := func() (interface{}, error) {
		tables, err := s.repo.ListActiveTables(ctx, outletID)
		if err != nil {
			return nil, err
		}
		out := make([]allocation.Table, 0, len(tables))
		for _, t := range tables {
			out = append(out, t.ToAllocation())
		}
		return out, nil
	}

	if s.cache == nil {
		v, err := fetch()
		if err != nil {
			return nil, err
		}
		return v.([]allocation.Table), nil
	}

	var tables []allocation.Table
	if err := s.cache.GetOrSet(ctx, constants.BuildOutletTablesKey(outletID.String()), s.config.TablesTTL, fetch, &tables); err != nil {
		return nil, err
	}
	return tables, nil
}

func (s *service) GetCurrentReservationAllocationPercent(ctx context.Context, outletID uuid.UUID, at time.Time) (int, error) {
	outlet, err := s.GetOutlet(ctx, outletID)
	if err != nil {
		return 0, err
	}

	var rules []PeakHourRule
	if s.cache == nil {
		rules, err = s.repo.ListActivePeakHourRules(ctx, outletID)
	} else {
		err = s.cache.GetOrSet(ctx, constants.BuildOutletPeaksKey(outletID.String()), constants.TTL_OUTLET_PEAKS,
			func() (interface{}, error) {
				return s.repo.ListActivePeakHourRules(ctx, outletID)
			}, &rules)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load peak hour rules: %w", err)
	}

	return ResolveReservationPercent(outlet.DefaultReservationPercent, rules, at.In(s.location(outlet))), nil
}

func (s *service) GetQueueSettings(ctx context.Context, outletID uuid.UUID) (*QueueSettings, error) {
	outlet, err := s.GetOutlet(ctx, outletID)
	if err != nil {
		return nil, err
	}

	maxParty := outlet.MaxPartySize
	if maxParty <= 0 {
		maxParty = s.config.DefaultMaxPartySize
	}
	return &QueueSettings{
		OutletID:     outlet.ID,
		QueueEnabled: outlet.QueueEnabled,
		MaxPartySize: maxParty,
		Location:     s.location(outlet),
	}, nil
}

func (s *service) location(outlet *Outlet) *time.Location {
	loc, err := time.LoadLocation(outlet.Timezone)
	if err != nil || outlet.Timezone == "" {
		return time.UTC
	}
	return loc
}

func (s *service) CreateOutlet(ctx context.Context, req CreateOutletRequest) (*Outlet, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("name is required: %w", apperr.ErrInvalidInput)
	}
	if req.DefaultReservationPercent < 0 || req.DefaultReservationPercent > 100 {
		return nil, fmt.Errorf("reservation percent outside 0..100: %w", apperr.ErrInvalidInput)
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = s.config.DefaultTimezone
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", timezone, apperr.ErrInvalidInput)
	}

	queueEnabled := true
	if req.QueueEnabled != nil {
		queueEnabled = *req.QueueEnabled
	}
	maxParty := req.MaxPartySize
	if maxParty <= 0 {
		maxParty = s.config.DefaultMaxPartySize
	}

	outlet := &Outlet{
		ID:                        uuid.New(),
		Name:                      strings.TrimSpace(req.Name),
		Timezone:                  timezone,
		DefaultReservationPercent: req.DefaultReservationPercent,
		QueueEnabled:              queueEnabled,
		MaxPartySize:              maxParty,
	}
	if err := s.repo.CreateOutlet(ctx, outlet); err != nil {
		return nil, err
	}
	return outlet, nil
}

func (s *service) CreateTable(ctx context.Context, outletID uuid.UUID, req CreateTableRequest) (*Table, error) {
	if _, err := s.repo.GetOutletByID(ctx, outletID); err != nil {
		return nil, err
	}
	if req.Capacity < 1 {
		return nil, fmt.Errorf("capacity must be positive: %w", apperr.ErrInvalidInput)
	}

	table := &Table{
		ID:       uuid.New(),
		OutletID: outletID,
		Number:   strings.TrimSpace(req.Number),
		Capacity: req.Capacity,
		Section:  req.Section,
		Active:   true,
	}
	if err := s.repo.CreateTable(ctx, table); err != nil {
		return nil, err
	}

	s.invalidate(ctx, constants.BuildOutletTablesKey(outletID.String()))
	return table, nil
}

func (s *service) ListTables(ctx context.Context, outletID uuid.UUID) ([]Table, error) {
	return s.repo.ListTables(ctx, outletID)
}

func (s *service) SetTableActive(ctx context.Context, outletID, tableID uuid.UUID, active bool) (*Table, error) {
	table, err := s.repo.GetTableByID(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if table.OutletID != outletID {
		return nil, fmt.Errorf("table %s not in outlet %s: %w", tableID, outletID, apperr.ErrNotFound)
	}

	if err := s.repo.SetTableActive(ctx, tableID, active); err != nil {
		return nil, err
	}
	table.Active = active

	s.invalidate(ctx, constants.BuildOutletTablesKey(outletID.String()))
	return table, nil
}

func (s *service) CreatePeakHourRule(ctx context.Context, outletID uuid.UUID, req CreatePeakHourRuleRequest) (*PeakHourRule, error) {
	if _, err := s.repo.GetOutletByID(ctx, outletID); err != nil {
		return nil, err
	}
	if err := validateWindow(req.StartTime, req.EndTime); err != nil {
		return nil, fmt.Errorf("%v: %w", err, apperr.ErrInvalidInput)
	}
	if req.DayOfWeek < 0 || req.DayOfWeek > 6 {
		return nil, fmt.Errorf("day of week %d outside 0..6: %w", req.DayOfWeek, apperr.ErrInvalidInput)
	}
	if req.ReservationPercent < 0 || req.ReservationPercent > 100 {
		return nil, fmt.Errorf("reservation percent outside 0..100: %w", apperr.ErrInvalidInput)
	}

	rule := &PeakHourRule{
		ID:                 uuid.New(),
		OutletID:           outletID,
		DayOfWeek:          time.Weekday(req.DayOfWeek),
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		ReservationPercent: req.ReservationPercent,
		Active:             true,
	}
	if err := s.repo.CreatePeakHourRule(ctx, rule); err != nil {
		return nil, err
	}

	s.invalidate(ctx, constants.BuildOutletPeaksKey(outletID.String()))
	return rule, nil
}

// ApplyFieldChange writes one approved field change
func (s *service) ApplyFieldChange(ctx context.Context, outletID uuid.UUID, change FieldChange) (*Outlet, error) {
	if change == nil {
		return nil, fmt.Errorf("missing field change: %w", apperr.ErrInvalidInput)
	}
	if err := change.validate(); err != nil {
		return nil, err
	}
	updates, err := columnUpdate(change)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateOutlet(ctx, outletID, updates); err != nil {
		return nil, err
	}
	s.invalidate(ctx, constants.BuildOutletDetailKey(outletID.String()))

	s.logger.InfoContext(ctx, "outlet field changed",
		"outlet_id", outletID.String(),
		"field", string(change.Field()),
	)
	return s.repo.GetOutletByID(ctx, outletID)
}

func (s *service) invalidate(ctx context.Context, keys ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, keys...); err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.WarnContext(ctx, "failed to invalidate outlet cache", "keys", keys, "error", err.Error())
	}
}
