// Package testutil builds in-memory sqlite databases for package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sdnyco/ichi/internal/model"
)

// NewDB opens a private shared-cache in-memory database with every table
// migrated. The pool is pinned to one connection so concurrent transactions
// serialize the way row locks would on postgres.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(
		&model.User{}, &model.Place{}, &model.CheckIn{}, &model.PlaceProfile{},
		&model.UserBlock{}, &model.PingEvent{}, &model.PingRecipient{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Seeder inserts fixtures, failing the test on error.
type Seeder struct {
	t  testing.TB
	db *gorm.DB
}

func NewSeeder(t testing.TB, db *gorm.DB) *Seeder { return &Seeder{t: t, db: db} }

func (s *Seeder) create(v any) {
	s.t.Helper()
	if err := s.db.Create(v).Error; err != nil {
		s.t.Fatalf("seed %T: %v", v, err)
	}
}

func (s *Seeder) User(id string) *model.User {
	u := &model.User{ID: id, Username: id, Email: id + "@example.com"}
	s.create(u)
	return u
}

func (s *Seeder) BannedUser(id string) *model.User {
	u := s.User(id)
	if err := s.db.Model(u).Update("is_banned", true).Error; err != nil {
		s.t.Fatalf("ban %s: %v", id, err)
	}
	u.IsBanned = true
	return u
}

func (s *Seeder) Place(id string) *model.Place {
	p := &model.Place{ID: id, Name: "Place " + id, Slug: "place-" + id}
	s.create(p)
	return p
}

func (s *Seeder) CheckIn(id, userID, placeID string, startedAt, expiresAt time.Time) *model.CheckIn {
	c := &model.CheckIn{
		ID: id, UserID: userID, PlaceID: placeID, Mood: "chill",
		StartedAt: startedAt.UTC(), ExpiresAt: expiresAt.UTC(),
	}
	s.create(c)
	return c
}

// AnchoredProfile creates an anchored profile with availability disabled.
func (s *Seeder) AnchoredProfile(userID, placeID, email string) *model.PlaceProfile {
	p := &model.PlaceProfile{
		ID: uuid.NewString(), UserID: userID, PlaceID: placeID,
		IsAnchored: true, ContactEmail: email,
		AvailabilityWeekly: datatypes.NewJSONType(model.WeeklyAvailability(nil)),
	}
	s.create(p)
	return p
}

func (s *Seeder) Profile(p *model.PlaceProfile) *model.PlaceProfile {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	s.create(p)
	return p
}

func (s *Seeder) Block(blockerID, blockedID string) {
	s.create(&model.UserBlock{ID: uuid.NewString(), BlockerID: blockerID, BlockedID: blockedID})
}

// Receipt records a past ping received by userID at the given time under its own event.
func (s *Seeder) Receipt(userID string, at time.Time) {
	ev := &model.PingEvent{
		ID: uuid.NewString(), PlaceID: "elsewhere-" + uuid.NewString(), DayKey: at.UTC().Format("2006-01-02"),
		SenderUserID: "someone", SenderCheckInID: "c", MaxRecipients: 3,
		Status: model.PingStatusSent, CreatedAt: at.UTC(),
	}
	s.create(ev)
	s.create(&model.PingRecipient{ID: uuid.NewString(), PingEventID: ev.ID, RecipientUserID: userID, CreatedAt: at.UTC()})
}
