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

func newSelector(t *testing.T, max int) (*Selector, *testutil.Seeder) {
	db := testutil.NewDB(t)
	sel := NewSelector(repository.NewProfileRepository(db), repository.NewPingRepository(db), max)
	return sel, testutil.NewSeeder(t, db)
}

func selectedIDs(t *testing.T, sel *Selector, placeID, senderID string, disableRateLimits bool) []string {
	t.Helper()
	rs, err := sel.SelectRecipients(context.Background(), placeID, senderID, testNow, disableRateLimits)
	require.NoError(t, err)
	ids := make([]string, 0, len(rs))
	for _, r := range rs {
		ids = append(ids, r.UserID)
	}
	return ids
}

func window(start, end int) model.DayWindow { return model.DayWindow{Start: &start, End: &end} }

func TestSelectRecipients_BasicFilters(t *testing.T) {
	sel, seed := newSelector(t, 10)
	seed.Place("p1")
	for _, id := range []string{"sender", "ok", "loose", "noemail", "bademail", "elsewhere"} {
		seed.User(id)
	}
	seed.BannedUser("troll")
	seed.AnchoredProfile("sender", "p1", "sender@example.com")
	seed.AnchoredProfile("ok", "p1", "ok@example.com")
	seed.AnchoredProfile("troll", "p1", "troll@example.com")
	seed.Profile(&model.PlaceProfile{UserID: "loose", PlaceID: "p1", IsAnchored: false, ContactEmail: "loose@example.com",
		AvailabilityWeekly: datatypes.NewJSONType(model.WeeklyAvailability(nil))})
	seed.AnchoredProfile("noemail", "p1", "")
	seed.AnchoredProfile("bademail", "p1", "not-an-email")
	seed.Place("p2")
	seed.AnchoredProfile("elsewhere", "p2", "elsewhere@example.com")

	assert.Equal(t, []string{"ok"}, selectedIDs(t, sel, "p1", "sender", false))
}

func TestSelectRecipients_BlockIsSymmetric(t *testing.T) {
	sel, seed := newSelector(t, 10)
	seed.Place("p1")
	for _, id := range []string{"a", "b", "c"} {
		seed.User(id)
		seed.AnchoredProfile(id, "p1", id+"@example.com")
	}
	seed.Block("a", "b")

	assert.Equal(t, []string{"c"}, selectedIDs(t, sel, "p1", "a", false))
	assert.Equal(t, []string{"c"}, selectedIDs(t, sel, "p1", "b", false))
	assert.Equal(t, []string{"a", "b"}, selectedIDs(t, sel, "p1", "c", false))
}

func TestSelectRecipients_Availability(t *testing.T) {
	sel, seed := newSelector(t, 10)
	seed.Place("p1")
	seed.User("sender")
	for _, id := range []string{"open", "closed", "unset"} {
		seed.User(id)
	}
	// testNow is Monday 12:00 in Berlin
	seed.Profile(&model.PlaceProfile{UserID: "open", PlaceID: "p1", IsAnchored: true, ContactEmail: "open@example.com",
		IsAvailabilityEnabled: true, AvailabilityTimeZone: "Europe/Berlin",
		AvailabilityWeekly: datatypes.NewJSONType(model.WeeklyAvailability{model.Monday: window(660, 780)})})
	seed.Profile(&model.PlaceProfile{UserID: "closed", PlaceID: "p1", IsAnchored: true, ContactEmail: "closed@example.com",
		IsAvailabilityEnabled: true, AvailabilityTimeZone: "Europe/Berlin",
		AvailabilityWeekly: datatypes.NewJSONType(model.WeeklyAvailability{model.Monday: window(540, 540)})})
	// availability off: pingable at any time
	seed.AnchoredProfile("unset", "p1", "unset@example.com")

	assert.Equal(t, []string{"open", "unset"}, selectedIDs(t, sel, "p1", "sender", false))
}

func TestSelectRecipients_ReceiveCap(t *testing.T) {
	sel, seed := newSelector(t, 10)
	seed.Place("p1")
	seed.User("sender")
	for _, id := range []string{"capped", "boundary", "fresh"} {
		seed.User(id)
		seed.AnchoredProfile(id, "p1", id+"@example.com")
	}
	for _, ago := range []time.Duration{time.Hour, 24 * time.Hour, 6 * 24 * time.Hour} {
		seed.Receipt("capped", testNow.Add(-ago))
	}
	// oldest one sits exactly on the window start and no longer counts
	seed.Receipt("boundary", testNow.Add(-ReceiveCapWindow))
	seed.Receipt("boundary", testNow.Add(-2*time.Hour))
	seed.Receipt("boundary", testNow.Add(-time.Hour))

	assert.Equal(t, []string{"fresh", "boundary"}, selectedIDs(t, sel, "p1", "sender", false))
	// same last ping time, so user id decides
	assert.Equal(t, []string{"fresh", "boundary", "capped"}, selectedIDs(t, sel, "p1", "sender", true))
}

func TestSelectRecipients_RankAndTruncate(t *testing.T) {
	sel, seed := newSelector(t, 3)
	seed.Place("p1")
	seed.User("sender")
	for _, id := range []string{"u1", "u2", "u3", "u4", "u5"} {
		seed.User(id)
		seed.AnchoredProfile(id, "p1", id+"@example.com")
	}
	seed.Receipt("u1", testNow.Add(-time.Hour))
	seed.Receipt("u2", testNow.Add(-48*time.Hour))
	seed.Receipt("u3", testNow.Add(-48*time.Hour))
	// u4 and u5 never pinged

	assert.Equal(t, []string{"u4", "u5", "u2"}, selectedIDs(t, sel, "p1", "sender", false))

	sel4 := NewSelector(sel.profiles, sel.pings, 4)
	assert.Equal(t, []string{"u4", "u5", "u2", "u3"}, selectedIDs(t, sel4, "p1", "sender", false))
}

func TestSelectRecipients_NoCandidates(t *testing.T) {
	sel, seed := newSelector(t, 3)
	seed.Place("p1")

	rs, err := sel.SelectRecipients(context.Background(), "p1", "sender", testNow, false)
	require.NoError(t, err)
	assert.Empty(t, rs)
}
