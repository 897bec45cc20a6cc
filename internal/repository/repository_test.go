package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdnyco/ichi/internal/model"
	"github.com/sdnyco/ichi/internal/testutil"
)

var now = time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

func TestUserAndPlace_GetByID(t *testing.T) {
	db := testutil.NewDB(t)
	seed := testutil.NewSeeder(t, db)
	seed.User("u1")
	seed.Place("p1")
	ctx := context.Background()

	u, err := NewUserRepository(db).GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	_, err = NewUserRepository(db).GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	p, err := NewPlaceRepository(db).GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "place-p1", p.Slug)

	_, err = NewPlaceRepository(db).GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCheckIn_CountActiveOthers(t *testing.T) {
	db := testutil.NewDB(t)
	seed := testutil.NewSeeder(t, db)
	seed.Place("p1")
	seed.User("sender")
	seed.User("other")
	seed.BannedUser("banned")
	seed.User("gone")

	seed.CheckIn("c-sender", "sender", "p1", now.Add(-time.Hour), now.Add(time.Hour))
	seed.CheckIn("c-banned", "banned", "p1", now.Add(-time.Hour), now.Add(time.Hour))
	seed.CheckIn("c-gone", "gone", "p1", now.Add(-2*time.Hour), now.Add(-time.Minute))

	repo := NewCheckInRepository(db)
	ctx := context.Background()

	n, err := repo.CountActiveOthers(ctx, "p1", "c-sender", now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "banned and expired check-ins do not count")

	seed.CheckIn("c-other", "other", "p1", now.Add(-time.Minute), now.Add(time.Hour))
	n, err = repo.CountActiveOthers(ctx, "p1", "c-sender", now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	c, err := repo.GetByID(ctx, "c-sender")
	require.NoError(t, err)
	assert.True(t, c.IsActive(now))
}

func TestProfile_ListPingCandidates(t *testing.T) {
	db := testutil.NewDB(t)
	seed := testutil.NewSeeder(t, db)
	seed.Place("p1")
	seed.Place("p2")
	for _, id := range []string{"sender", "a", "b", "blocks-sender", "blocked-by-sender", "not-anchored", "elsewhere"} {
		seed.User(id)
	}
	seed.BannedUser("banned")

	seed.AnchoredProfile("sender", "p1", "sender@example.com")
	seed.AnchoredProfile("a", "p1", "a@example.com")
	seed.AnchoredProfile("b", "p1", "b@example.com")
	seed.AnchoredProfile("blocks-sender", "p1", "x@example.com")
	seed.AnchoredProfile("blocked-by-sender", "p1", "y@example.com")
	seed.AnchoredProfile("banned", "p1", "z@example.com")
	seed.AnchoredProfile("elsewhere", "p2", "e@example.com")
	seed.Profile(&model.PlaceProfile{UserID: "not-anchored", PlaceID: "p1", ContactEmail: "n@example.com"})

	seed.Block("blocks-sender", "sender")
	seed.Block("sender", "blocked-by-sender")

	repo := NewProfileRepository(db)
	ctx := context.Background()

	got, err := repo.ListPingCandidates(ctx, "p1", "sender")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, userIDs(got))

	anchored, err := repo.ListAnchored(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "blocked-by-sender", "blocks-sender", "sender"}, userIDs(anchored))
}

func TestPing_ReserveIsUniquePerPlaceAndDay(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPingRepository(db)
	ctx := context.Background()

	ev := func(place, day string) *model.PingEvent {
		return &model.PingEvent{
			ID: uuid.NewString(), PlaceID: place, DayKey: day, SenderUserID: "s",
			SenderCheckInID: "c", MaxRecipients: 3, Status: model.PingStatusSent, CreatedAt: now,
		}
	}

	ok, err := repo.Reserve(ctx, ev("p1", "2024-03-04"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Reserve(ctx, ev("p1", "2024-03-04"))
	require.NoError(t, err)
	assert.False(t, ok, "second insert for the same day must be ignored")

	ok, err = repo.Reserve(ctx, ev("p1", "2024-03-05"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Reserve(ctx, ev("p2", "2024-03-04"))
	require.NoError(t, err)
	assert.True(t, ok)

	reserved, err := repo.IsReserved(ctx, "p1", "2024-03-04")
	require.NoError(t, err)
	assert.True(t, reserved)

	reserved, err = repo.IsReserved(ctx, "p3", "2024-03-04")
	require.NoError(t, err)
	assert.False(t, reserved)

	var cnt int64
	require.NoError(t, db.Model(&model.PingEvent{}).Count(&cnt).Error)
	assert.Equal(t, int64(3), cnt)
}

func TestPing_ReceiptStats(t *testing.T) {
	db := testutil.NewDB(t)
	seed := testutil.NewSeeder(t, db)
	since := now.Add(-7 * 24 * time.Hour)

	seed.Receipt("a", since) // exactly at the boundary: not counted
	seed.Receipt("a", now.Add(-time.Hour))
	seed.Receipt("a", now.Add(-2*time.Hour))
	seed.Receipt("b", now.Add(-30*24*time.Hour))

	stats, err := NewPingRepository(db).ReceiptStats(context.Background(), []string{"a", "b", "c"}, since)
	require.NoError(t, err)

	assert.Equal(t, 2, stats["a"].Recent)
	assert.True(t, stats["a"].LastAt.Equal(now.Add(-time.Hour)))
	assert.Equal(t, 0, stats["b"].Recent)
	assert.False(t, stats["b"].LastAt.IsZero())
	_, seen := stats["c"]
	assert.False(t, seen)
}

func TestPing_ReceiptStats_LongHistory(t *testing.T) {
	db := testutil.NewDB(t)
	seed := testutil.NewSeeder(t, db)
	since := now.Add(-7 * 24 * time.Hour)

	for i := 1; i <= 40; i++ {
		seed.Receipt("a", since.Add(-time.Duration(i)*24*time.Hour))
	}
	latest := now.Add(-90 * time.Minute).Add(250 * time.Millisecond)
	seed.Receipt("a", latest)
	seed.Receipt("a", now.Add(-90*time.Minute))
	seed.Receipt("b", since.Add(time.Second))

	stats, err := NewPingRepository(db).ReceiptStats(context.Background(), []string{"a", "b"}, since)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, 2, stats["a"].Recent)
	assert.True(t, stats["a"].LastAt.Equal(latest), "got %v", stats["a"].LastAt)
	assert.Equal(t, time.UTC, stats["a"].LastAt.Location())
	assert.Equal(t, 1, stats["b"].Recent)
	assert.True(t, stats["b"].LastAt.Equal(since.Add(time.Second)))
}

func TestPing_MarkFailedAndRecipients(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPingRepository(db)
	ctx := context.Background()

	ev := &model.PingEvent{
		ID: uuid.NewString(), PlaceID: "p1", DayKey: "2024-03-04", SenderUserID: "s",
		SenderCheckInID: "c", MaxRecipients: 3, Status: model.PingStatusSent, CreatedAt: now,
	}
	ok, err := repo.Reserve(ctx, ev)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, repo.CreateRecipients(ctx, []model.PingRecipient{
		{ID: uuid.NewString(), PingEventID: ev.ID, RecipientUserID: "a", CreatedAt: now},
		{ID: uuid.NewString(), PingEventID: ev.ID, RecipientUserID: "b", CreatedAt: now},
	}))
	require.NoError(t, repo.CreateRecipients(ctx, nil))
	require.NoError(t, repo.MarkFailed(ctx, ev.ID))

	var got model.PingEvent
	require.NoError(t, db.First(&got, "id = ?", ev.ID).Error)
	assert.Equal(t, model.PingStatusFailed, got.Status)

	var cnt int64
	require.NoError(t, db.Model(&model.PingRecipient{}).Where("ping_event_id = ?", ev.ID).Count(&cnt).Error)
	assert.Equal(t, int64(2), cnt)
}

func userIDs(ps []*model.PlaceProfile) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.UserID
	}
	return out
}
