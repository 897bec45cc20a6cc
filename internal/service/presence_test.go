package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/sdnyco/ichi/internal/model"
	"github.com/sdnyco/ichi/internal/repository"
	"github.com/sdnyco/ichi/internal/testutil"
)

func TestPlaceContext(t *testing.T) {
	db := testutil.NewDB(t)
	seed := testutil.NewSeeder(t, db)
	svc := NewPresenceService(repository.NewPlaceRepository(db), repository.NewCheckInRepository(db), repository.NewProfileRepository(db))
	svc.now = func() time.Time { return testNow }

	seed.Place("p1")
	for _, id := range []string{"here", "gone", "open", "unset"} {
		seed.User(id)
	}
	seed.CheckIn("c1", "here", "p1", testNow.Add(-time.Hour), testNow.Add(time.Hour))
	seed.CheckIn("c2", "gone", "p1", testNow.Add(-2*time.Hour), testNow.Add(-time.Hour))
	seed.Profile(&model.PlaceProfile{UserID: "open", PlaceID: "p1", IsAnchored: true, ContactEmail: "open@example.com",
		IsAvailabilityEnabled: true, AvailabilityTimeZone: "Europe/Berlin",
		AvailabilityWeekly: datatypes.NewJSONType(model.WeeklyAvailability{model.Monday: window(0, 1439)})})
	// availability off: not shown as available here, unlike the ping path
	seed.AnchoredProfile("unset", "p1", "unset@example.com")

	pc, err := svc.PlaceContext(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Place p1", pc.PlaceName)
	assert.Equal(t, int64(1), pc.ActiveCheckIns)
	assert.Equal(t, 2, pc.AnchoredCount)
	assert.Equal(t, 1, pc.AvailableNow)
}

func TestPlaceContext_NotFound(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewPresenceService(repository.NewPlaceRepository(db), repository.NewCheckInRepository(db), repository.NewProfileRepository(db))

	_, err := svc.PlaceContext(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
