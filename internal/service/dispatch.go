package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sdnyco/ichi/internal/cache"
	"github.com/sdnyco/ichi/internal/dayclock"
	"github.com/sdnyco/ichi/internal/events"
	"github.com/sdnyco/ichi/internal/metrics"
	"github.com/sdnyco/ichi/internal/model"
	"github.com/sdnyco/ichi/internal/notify"
	"github.com/sdnyco/ichi/internal/repository"
	"github.com/sdnyco/ichi/pkg/logger"
)

var tracer = otel.Tracer("github.com/sdnyco/ichi/internal/service")

// DispatchOptions 可选依赖；零值均可用
type DispatchOptions struct {
	MaxRecipients     int
	PublicBaseURL     string
	DisableRateLimits bool
	Marker            *cache.SentMarker
	Metrics           *metrics.Metrics
	Relay             *EventRelay
}

// Dispatcher decides and performs the once-per-day "someone was just here"
// ping for a place. The unique index on (place_id, day_key) is its only
// synchronization; it holds no locks.
type Dispatcher struct {
	db        *gorm.DB
	users     repository.UserRepository
	places    repository.PlaceRepository
	checkIns  repository.CheckInRepository
	pings     repository.PingRepository
	selector  *Selector
	clock     *dayclock.Clock
	transport notify.Transport
	opts      DispatchOptions

	now func() time.Time
	// afterReserve 测试钩子：在事件插入之后、复核之前于同一事务内执行
	afterReserve func(ctx context.Context, tx *gorm.DB) error
}

func NewDispatcher(db *gorm.DB, clock *dayclock.Clock, transport notify.Transport, opts DispatchOptions) *Dispatcher {
	pings := repository.NewPingRepository(db)
	return &Dispatcher{
		db:        db,
		users:     repository.NewUserRepository(db),
		places:    repository.NewPlaceRepository(db),
		checkIns:  repository.NewCheckInRepository(db),
		pings:     pings,
		selector:  NewSelector(repository.NewProfileRepository(db), pings, opts.MaxRecipients),
		clock:     clock,
		transport: transport,
		opts:      opts,
		now:       time.Now,
	}
}

// trigger 是通过前置校验的一次请求
type trigger struct {
	place   *model.Place
	checkIn *model.CheckIn
	dayKey  string
}

// Dispatch sends today's ping for placeID on behalf of senderID, who must own
// the active check-in checkInID there.
func (d *Dispatcher) Dispatch(ctx context.Context, senderID, placeID, checkInID string) Result {
	ctx, span := tracer.Start(ctx, "ping.dispatch", trace.WithAttributes(
		attribute.String("place.id", placeID),
	))
	defer span.End()

	res := d.dispatch(ctx, senderID, placeID, checkInID)
	d.finish(span, "dispatch", res)
	return res
}

func (d *Dispatcher) dispatch(ctx context.Context, senderID, placeID, checkInID string) Result {
	now := d.now()
	tr, reason, err := d.prepare(ctx, senderID, placeID, checkInID, now)
	if err != nil {
		return d.unexpected(ctx, "dispatch", err)
	}
	if reason != "" {
		return rejected(reason)
	}

	preview, err := d.selector.SelectRecipients(ctx, placeID, senderID, now, d.opts.DisableRateLimits)
	if err != nil {
		return d.unexpected(ctx, "dispatch", err)
	}
	if len(preview) == 0 {
		return rejected(ReasonNoRecipients)
	}

	var (
		confirmed []Recipient
		event     *model.PingEvent
	)
	err = d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipients, err := d.selector.WithTx(tx).SelectRecipients(ctx, placeID, senderID, now, d.opts.DisableRateLimits)
		if err != nil {
			return err
		}
		if len(recipients) == 0 {
			return errTxNoRecipients
		}

		pings := d.pings.WithTx(tx)
		ev := &model.PingEvent{
			ID:              uuid.NewString(),
			PlaceID:         placeID,
			DayKey:          tr.dayKey,
			SenderUserID:    senderID,
			SenderCheckInID: checkInID,
			MaxRecipients:   d.selector.MaxRecipients(),
			Status:          model.PingStatusSent,
			CreatedAt:       now.UTC(),
		}
		ok, err := pings.Reserve(ctx, ev)
		if err != nil {
			return fmt.Errorf("reserve day key: %w", err)
		}
		if !ok {
			return errTxSendLimit
		}

		if d.afterReserve != nil {
			if err := d.afterReserve(ctx, tx); err != nil {
				return err
			}
		}

		recipients, err = d.recheck(ctx, pings, recipients, now)
		if err != nil {
			return err
		}
		if len(recipients) == 0 {
			return ErrNoRecipientsAfterRecheck
		}

		rows := make([]model.PingRecipient, len(recipients))
		for i, r := range recipients {
			rows[i] = model.PingRecipient{
				ID:              uuid.NewString(),
				PingEventID:     ev.ID,
				RecipientUserID: r.UserID,
				CreatedAt:       now.UTC(),
			}
		}
		if err := pings.CreateRecipients(ctx, rows); err != nil {
			return fmt.Errorf("create recipients: %w", err)
		}
		confirmed, event = recipients, ev
		return nil
	})
	switch {
	case errors.Is(err, errTxSendLimit):
		return rejected(ReasonSendLimit)
	case errors.Is(err, errTxNoRecipients), errors.Is(err, ErrNoRecipientsAfterRecheck):
		return rejected(ReasonNoRecipients)
	case err != nil:
		return d.unexpected(ctx, "dispatch", err)
	}

	// 已提交：投递与状态回写不再跟随请求取消
	return d.deliver(context.WithoutCancel(ctx), tr, event, confirmed)
}

// recheck 事务内按接收上限再次过滤，覆盖预览与提交之间并发提交的 ping
func (d *Dispatcher) recheck(ctx context.Context, pings repository.PingRepository, rs []Recipient, now time.Time) ([]Recipient, error) {
	if d.opts.DisableRateLimits {
		return rs, nil
	}
	stats, err := pings.ReceiptStats(ctx, userIDs(rs), now.Add(-ReceiveCapWindow))
	if err != nil {
		return nil, fmt.Errorf("recheck receipts: %w", err)
	}
	kept := make([]Recipient, 0, len(rs))
	for _, r := range rs {
		if stats[r.UserID].Recent < ReceiveCap {
			kept = append(kept, r)
		}
	}
	return kept, nil
}

// deliver runs after commit. A transport failure flips the event to failed
// but never undoes the committed rows.
func (d *Dispatcher) deliver(ctx context.Context, tr *trigger, ev *model.PingEvent, rs []Recipient) Result {
	if err := d.opts.Marker.MarkSent(ctx, ev.PlaceID, ev.DayKey, ev.ID); err != nil {
		logger.Warn("set sent marker failed", zap.String("place", ev.PlaceID), zap.Error(err))
	}
	d.opts.Metrics.Recipients(len(rs))

	emails := make([]string, len(rs))
	for i, r := range rs {
		emails[i] = r.Email
	}
	msg := notify.PingEmail{
		PlaceName:  tr.place.Name,
		PlaceURL:   d.placeURL(tr.place),
		ExpiresAt:  tr.checkIn.ExpiresAt,
		Mood:       tr.checkIn.Mood,
		Recipients: emails,
	}

	published := events.PingSent{
		EventID:        ev.ID,
		PlaceID:        ev.PlaceID,
		DayKey:         ev.DayKey,
		SenderUserID:   ev.SenderUserID,
		RecipientCount: len(rs),
		Status:         model.PingStatusSent,
		SentAt:         ev.CreatedAt,
	}

	if sendErr := d.transport.Send(ctx, msg); sendErr != nil {
		if err := d.pings.MarkFailed(ctx, ev.ID); err != nil {
			logger.Error("mark ping failed", zap.String("event", ev.ID), zap.Error(err))
			captureError(ctx, err)
		}
		logger.Error("ping email delivery failed",
			zap.String("event", ev.ID),
			zap.String("place", ev.PlaceID),
			zap.Int("recipients", len(rs)),
			zap.Error(sendErr),
		)
		captureError(ctx, sendErr)
		d.opts.Metrics.EmailFailed()
		published.Status = model.PingStatusFailed
		d.opts.Relay.Enqueue(published)
		res := rejected(ReasonEmailFailed)
		res.EventID = ev.ID
		return res
	}

	logger.Info("ping sent",
		zap.String("event", ev.ID),
		zap.String("place", ev.PlaceID),
		zap.String("day", ev.DayKey),
		zap.Int("recipients", len(rs)),
	)
	d.opts.Relay.Enqueue(published)
	return sentTo(len(rs), ev.ID)
}

// Preview answers "could I ping right now" without writing anything. The
// answer is advisory; Dispatch re-derives everything on its own.
func (d *Dispatcher) Preview(ctx context.Context, senderID, placeID, checkInID string) Result {
	ctx, span := tracer.Start(ctx, "ping.preview", trace.WithAttributes(
		attribute.String("place.id", placeID),
	))
	defer span.End()

	res := d.preview(ctx, senderID, placeID, checkInID)
	d.finish(span, "preview", res)
	return res
}

func (d *Dispatcher) preview(ctx context.Context, senderID, placeID, checkInID string) Result {
	now := d.now()
	_, reason, err := d.prepare(ctx, senderID, placeID, checkInID, now)
	if err != nil {
		return d.unexpected(ctx, "preview", err)
	}
	if reason != "" {
		return rejected(reason)
	}
	rs, err := d.selector.SelectRecipients(ctx, placeID, senderID, now, d.opts.DisableRateLimits)
	if err != nil {
		return d.unexpected(ctx, "preview", err)
	}
	if len(rs) == 0 {
		return rejected(ReasonNoRecipients)
	}
	return eligible(len(rs))
}

// prepare runs the checks shared by Dispatch and Preview: identity, place,
// check-in ownership and expiry, emptiness, and whether today is already taken.
// A non-empty Reason is a policy rejection; an error is unexpected.
func (d *Dispatcher) prepare(ctx context.Context, senderID, placeID, checkInID string, now time.Time) (*trigger, Reason, error) {
	if strings.TrimSpace(senderID) == "" {
		return nil, ReasonUnauthorized, nil
	}
	user, err := d.users.GetByID(ctx, senderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ReasonUnauthorized, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("load sender: %w", err)
	}
	if user.IsBanned {
		return nil, ReasonAccountDisabled, nil
	}

	place, err := d.places.GetByID(ctx, placeID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ReasonPlaceNotFound, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("load place: %w", err)
	}

	checkIn, err := d.checkIns.GetByID(ctx, checkInID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ReasonCheckInNotFound, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("load check-in: %w", err)
	}
	if checkIn.UserID != senderID {
		return nil, ReasonUnauthorized, nil
	}
	if checkIn.PlaceID != placeID || !checkIn.IsActive(now) {
		return nil, ReasonCheckInNotFound, nil
	}

	others, err := d.checkIns.CountActiveOthers(ctx, placeID, checkInID, now)
	if err != nil {
		return nil, "", fmt.Errorf("count active check-ins: %w", err)
	}
	if others > 0 {
		return nil, ReasonNotEmpty, nil
	}

	dayKey := d.clock.DayKey(now)
	eventID, sent, err := d.opts.Marker.EventID(ctx, placeID, dayKey)
	if err != nil {
		logger.Warn("read sent marker failed", zap.String("place", placeID), zap.Error(err))
	}
	if sent {
		logger.Debug("day key taken (sent marker)", zap.String("place", placeID), zap.String("event", eventID))
	} else {
		if sent, err = d.pings.IsReserved(ctx, placeID, dayKey); err != nil {
			return nil, "", fmt.Errorf("lookup day key: %w", err)
		}
	}
	if sent {
		return nil, ReasonSendLimit, nil
	}
	return &trigger{place: place, checkIn: checkIn, dayKey: dayKey}, "", nil
}

func (d *Dispatcher) placeURL(p *model.Place) string {
	return strings.TrimRight(d.opts.PublicBaseURL, "/") + "/p/" + p.Slug
}

func (d *Dispatcher) unexpected(ctx context.Context, op string, err error) Result {
	logger.Error("ping "+op+" failed", zap.Error(err))
	captureError(ctx, err)
	return rejected(ReasonUnknownError)
}

func (d *Dispatcher) finish(span trace.Span, op string, res Result) {
	reason := res.Reason
	if res.OK {
		reason = ReasonOK
	}
	span.SetAttributes(attribute.String("ping.outcome", string(reason)))
	if reason == ReasonUnknownError || reason == ReasonEmailFailed {
		span.SetStatus(codes.Error, string(reason))
	}
	d.opts.Metrics.Outcome(op, string(reason))
}

func captureError(ctx context.Context, err error) {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}
