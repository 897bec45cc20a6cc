package service

import "errors"

// Reason 是 ping 操作的结果码
type Reason string

const (
	ReasonOK              Reason = "ok"
	ReasonNotEmpty        Reason = "not_empty"
	ReasonSendLimit       Reason = "send_limit"
	ReasonNoRecipients    Reason = "no_recipients"
	ReasonEmailFailed     Reason = "email_failed"
	ReasonCheckInNotFound Reason = "checkin_not_found"
	ReasonPlaceNotFound   Reason = "place_not_found"
	ReasonAccountDisabled Reason = "account_disabled"
	ReasonUnauthorized    Reason = "unauthorized"
	ReasonUnknownError    Reason = "unknown_error"
)

// Result is returned by Dispatch and Preview. Exactly one of SentToCount,
// EligibleCount or Reason is meaningful.
type Result struct {
	OK            bool   `json:"ok"`
	SentToCount   *int   `json:"sentToCount,omitempty"`
	EligibleCount *int   `json:"eligibleCount,omitempty"`
	Reason        Reason `json:"reason,omitempty"`

	EventID string `json:"-"`
}

func rejected(r Reason) Result { return Result{Reason: r} }

func sentTo(n int, eventID string) Result {
	return Result{OK: true, SentToCount: &n, EventID: eventID}
}

func eligible(n int) Result { return Result{OK: true, EligibleCount: &n} }

// ErrNoRecipientsAfterRecheck aborts the send transaction when the in-transaction
// receive-cap recheck leaves nobody. The reservation rolls back with it.
var ErrNoRecipientsAfterRecheck = errors.New("no recipients after recheck")

// 事务内的策略拒绝，回滚后映射为结果码
var (
	errTxNoRecipients = errors.New("no recipients")
	errTxSendLimit    = errors.New("day key already reserved")
)
