package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"walkin/internal/outlets"
	"walkin/internal/queue"
	"walkin/internal/shared/config"
	"walkin/internal/shared/constants"
	"walkin/internal/shared/database"
	"walkin/pkg/cache"
	"walkin/pkg/logger"
)

type Seeder struct {
	db      *database.DB
	cache   cache.Service
	outlets outlets.Service
}

type outletSeed struct {
	name               string
	timezone           string
	reservationPercent int
	tables             []outlets.CreateTableRequest
	peaks              []outlets.CreatePeakHourRuleRequest
}

func main() {
	fmt.Println("🌱 Starting walk-in queue seeder...")

	cfg := config.Load()
	appLogger := logger.New()

	db, err := database.InitDB(cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	cacheService := cache.NewService(db.Redis, appLogger)
	seeder := &Seeder{
		db:    db,
		cache: cacheService,
		outlets: outlets.NewService(outlets.NewRepository(db.SQL), cacheService, &outlets.ServiceConfig{
			DefaultMaxPartySize: cfg.Queue.DefaultMaxPartySize,
			DefaultTimezone:     "UTC",
			TablesTTL:           cfg.Redis.CatalogTTL,
		}, appLogger),
	}

	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(context.Background()); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	fmt.Println("\n🌱 Seeding database...")
	ids, err := seeder.SeedAll(context.Background())
	if err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	for name, id := range ids {
		fmt.Printf("  %s: %s\n", name, id)
	}
	fmt.Println("\n🎉 Seeding completed! Outlets are ready for walk-ins.")
}

// CleanDatabase removes queue history first, then the catalog
func (s *Seeder) CleanDatabase(ctx context.Context) error {
	var outletIDs []uuid.UUID
	if err := s.db.SQL.WithContext(ctx).Model(&outlets.Outlet{}).Pluck("id", &outletIDs).Error; err != nil {
		return fmt.Errorf("failed to list outlets: %w", err)
	}

	models := []interface{}{
		&queue.StatusChange{},
		&queue.QueueTableAssignment{},
		&queue.QueueEntry{},
		&outlets.PeakHourRule{},
		&outlets.Table{},
		&outlets.Outlet{},
	}

	err := s.db.SQL.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range models {
			stmt := &gorm.Statement{DB: tx}
			if err := stmt.Parse(model); err != nil {
				return err
			}
			fmt.Printf("  Clearing table: %s\n", stmt.Schema.Table)
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to clear %s: %w", stmt.Schema.Table, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, id := range outletIDs {
		if err := s.cache.DeletePattern(ctx, constants.CACHE_PATTERN_OUTLET+id.String()); err != nil {
			fmt.Printf("  ⚠️  Failed to clear cache for outlet %s: %v\n", id, err)
		}
	}
	return nil
}

// SeedAll creates the demo outlets and returns their IDs by name
func (s *Seeder) SeedAll(ctx context.Context) (map[string]uuid.UUID, error) {
	ids := make(map[string]uuid.UUID)
	for _, seed := range demoOutlets() {
		outlet, err := s.seedOutlet(ctx, seed)
		if err != nil {
			return nil, fmt.Errorf("failed to seed outlet %s: %w", seed.name, err)
		}
		ids[outlet.Name] = outlet.ID
	}
	return ids, nil
}

func (s *Seeder) seedOutlet(ctx context.Context, seed outletSeed) (*outlets.Outlet, error) {
	enabled := true
	outlet, err := s.outlets.CreateOutlet(ctx, outlets.CreateOutletRequest{
		Name:                      seed.name,
		Timezone:                  seed.timezone,
		DefaultReservationPercent: seed.reservationPercent,
		QueueEnabled:              &enabled,
	})
	if err != nil {
		return nil, err
	}
	fmt.Printf("  🏠 Outlet %s (%s)\n", outlet.Name, outlet.Timezone)

	for _, table := range seed.tables {
		if _, err := s.outlets.CreateTable(ctx, outlet.ID, table); err != nil {
			return nil, fmt.Errorf("table %s: %w", table.Number, err)
		}
	}
	fmt.Printf("    🪑 %d tables\n", len(seed.tables))

	for _, peak := range seed.peaks {
		if _, err := s.outlets.CreatePeakHourRule(ctx, outlet.ID, peak); err != nil {
			return nil, fmt.Errorf("peak rule %s %s-%s: %w", time.Weekday(peak.DayOfWeek), peak.StartTime, peak.EndTime, err)
		}
	}
	fmt.Printf("    ⏰ %d peak-hour rules\n", len(seed.peaks))

	return outlet, nil
}

func demoOutlets() []outletSeed {
	var dinnerPeaks []outlets.CreatePeakHourRuleRequest
	for day := time.Monday; day <= time.Saturday; day++ {
		dinnerPeaks = append(dinnerPeaks, outlets.CreatePeakHourRuleRequest{
			DayOfWeek:          int(day),
			StartTime:          "18:00",
			EndTime:            "21:00",
			ReservationPercent: 60,
		})
	}
	dinnerPeaks = append(dinnerPeaks, outlets.CreatePeakHourRuleRequest{
		DayOfWeek:          int(time.Sunday),
		StartTime:          "11:00",
		EndTime:            "14:00",
		ReservationPercent: 40,
	})

	return []outletSeed{
		{
			name:               "Harbour Street Kitchen",
			timezone:           "Asia/Singapore",
			reservationPercent: 30,
			tables: []outlets.CreateTableRequest{
				{Number: "A1", Capacity: 2, Section: "window"},
				{Number: "A2", Capacity: 2, Section: "window"},
				{Number: "B1", Capacity: 4, Section: "main"},
				{Number: "B2", Capacity: 4, Section: "main"},
				{Number: "C1", Capacity: 6, Section: "main"},
				{Number: "P1", Capacity: 8, Section: "private"},
			},
			peaks: dinnerPeaks,
		},
		{
			name:               "Noodle Bar Midtown",
			timezone:           "UTC",
			reservationPercent: 0,
			tables: []outlets.CreateTableRequest{
				{Number: "1", Capacity: 2},
				{Number: "2", Capacity: 2},
				{Number: "3", Capacity: 2},
				{Number: "4", Capacity: 4},
			},
		},
	}
}
