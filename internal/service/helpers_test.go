package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/sdnyco/ichi/internal/dayclock"
	"github.com/sdnyco/ichi/internal/model"
	"github.com/sdnyco/ichi/internal/notify"
	"github.com/sdnyco/ichi/internal/testutil"
)

// Monday noon in Berlin.
var testNow = time.Date(2024, 3, 4, 11, 0, 0, 0, time.UTC)

type fakeTransport struct {
	mu   sync.Mutex
	sent []notify.PingEmail
	fail map[string]bool
	// onSend 在记录之后调用；非 nil 错误直接返回
	onSend func(ctx context.Context) error
}

func (f *fakeTransport) Send(ctx context.Context, msg notify.PingEmail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	if f.onSend != nil {
		if err := f.onSend(ctx); err != nil {
			return err
		}
	}
	var err error
	for _, r := range msg.Recipients {
		if f.fail[r] {
			err = multierr.Append(err, &notify.RecipientError{Recipient: r, Err: errors.New("mailbox unavailable")})
		}
	}
	return err
}

func (f *fakeTransport) calls() []notify.PingEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.PingEmail(nil), f.sent...)
}

type fixture struct {
	t         *testing.T
	db        *gorm.DB
	seed      *testutil.Seeder
	transport *fakeTransport
	d         *Dispatcher
}

func newFixture(t *testing.T, opts DispatchOptions) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	clock, err := dayclock.New("Europe/Berlin")
	require.NoError(t, err)

	if opts.MaxRecipients == 0 {
		opts.MaxRecipients = 3
	}
	if opts.PublicBaseURL == "" {
		opts.PublicBaseURL = "https://ichi.test/"
	}
	tr := &fakeTransport{fail: map[string]bool{}}
	d := NewDispatcher(db, clock, tr, opts)
	d.now = func() time.Time { return testNow }

	return &fixture{t: t, db: db, seed: testutil.NewSeeder(t, db), transport: tr, d: d}
}

// lonelyPlace seeds place p1 where sender is the only one checked in, plus
// the given anchored recipients with availability disabled.
func (f *fixture) lonelyPlace(recipients ...string) {
	f.seed.User("sender")
	f.seed.Place("p1")
	f.seed.CheckIn("c1", "sender", "p1", testNow.Add(-time.Hour), testNow.Add(time.Hour))
	for _, id := range recipients {
		f.seed.User(id)
		f.seed.AnchoredProfile(id, "p1", id+"@example.com")
	}
}

func (f *fixture) countEvents(placeID string) int64 {
	var n int64
	require.NoError(f.t, f.db.Model(&model.PingEvent{}).Where("place_id = ?", placeID).Count(&n).Error)
	return n
}

func (f *fixture) eventFor(placeID string) *model.PingEvent {
	var ev model.PingEvent
	require.NoError(f.t, f.db.Where("place_id = ?", placeID).First(&ev).Error)
	return &ev
}

func (f *fixture) recipientsOf(eventID string) []string {
	var ids []string
	require.NoError(f.t, f.db.Model(&model.PingRecipient{}).
		Where("ping_event_id = ?", eventID).
		Order("recipient_user_id").
		Pluck("recipient_user_id", &ids).Error)
	return ids
}

func intPtr(v int) *int { return &v }
