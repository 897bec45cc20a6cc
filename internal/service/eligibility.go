package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/sdnyco/ichi/internal/availability"
	"github.com/sdnyco/ichi/internal/repository"
)

const (
	// ReceiveCapWindow 接收上限的滚动窗口
	ReceiveCapWindow = 7 * 24 * time.Hour
	// ReceiveCap 窗口内单个用户最多接收的 ping 数
	ReceiveCap = 3
)

// Recipient is a confirmed ping target.
type Recipient struct {
	UserID     string
	Email      string
	LastPingAt time.Time // zero if never pinged
}

// Selector picks the recipients of a ping. It only reads.
type Selector struct {
	profiles      repository.ProfileRepository
	pings         repository.PingRepository
	validate      *validator.Validate
	maxRecipients int
}

func NewSelector(profiles repository.ProfileRepository, pings repository.PingRepository, maxRecipients int) *Selector {
	if maxRecipients <= 0 {
		maxRecipients = 3
	}
	return &Selector{profiles: profiles, pings: pings, validate: validator.New(), maxRecipients: maxRecipients}
}

// WithTx returns a selector reading through tx.
func (s *Selector) WithTx(tx *gorm.DB) *Selector {
	cp := *s
	cp.profiles = s.profiles.WithTx(tx)
	cp.pings = s.pings.WithTx(tx)
	return &cp
}

func (s *Selector) MaxRecipients() int { return s.maxRecipients }

// SelectRecipients returns at most MaxRecipients candidates for a ping sent by
// senderID at placeID, least recently pinged first.
func (s *Selector) SelectRecipients(ctx context.Context, placeID, senderID string, now time.Time, disableRateLimits bool) ([]Recipient, error) {
	profiles, err := s.profiles.ListPingCandidates(ctx, placeID, senderID)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	cands := make([]Recipient, 0, len(profiles))
	for _, p := range profiles {
		email := strings.TrimSpace(p.ContactEmail)
		if s.validate.Var(email, "required,email") != nil {
			continue
		}
		// 未开启可用时间的锚定档案视为随时可用
		if !availability.IsAvailableNow(availability.FromProfile(p), now, availability.DisabledAvailable) {
			continue
		}
		cands = append(cands, Recipient{UserID: p.UserID, Email: email})
	}
	if len(cands) == 0 {
		return nil, nil
	}

	stats, err := s.pings.ReceiptStats(ctx, userIDs(cands), now.Add(-ReceiveCapWindow))
	if err != nil {
		return nil, fmt.Errorf("receipt stats: %w", err)
	}

	kept := cands[:0]
	for _, c := range cands {
		st := stats[c.UserID]
		if !disableRateLimits && st.Recent >= ReceiveCap {
			continue
		}
		c.LastPingAt = st.LastAt
		kept = append(kept, c)
	}

	rank(kept)
	if len(kept) > s.maxRecipients {
		kept = kept[:s.maxRecipients]
	}
	return kept, nil
}

// rank orders by last ping ascending; never pinged sorts first, ties by user id.
func rank(rs []Recipient) {
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if !a.LastPingAt.Equal(b.LastPingAt) {
			return a.LastPingAt.Before(b.LastPingAt)
		}
		return a.UserID < b.UserID
	})
}

func userIDs(rs []Recipient) []string {
	ids := make([]string, len(rs))
	for i, r := range rs {
		ids[i] = r.UserID
	}
	return ids
}
