/*
status.go - Transaction status by channel

PURPOSE:
  Tells a channel where a transaction stands in time and hides fee
  details from untrusted channels.

CLASSIFICATION (today/tomorrow = local midnights around Clock.Now()):
  dateEpoch <  today              → SETTLED
  today <= dateEpoch < tomorrow   → PENDING
  dateEpoch >= tomorrow           → FUTURE  (ATM: PENDING)

  The ATM channel never distinguishes future-dated transactions from
  pending ones. This is a business rule, not a bug.

REDACTION:
  INTERNAL       raw amount, raw fee
  CLIENT, ATM    net amount (same rule as posting), no fee

UNKNOWN REFERENCE:
  Returns status INVALID with no amount and no fee. Not an error.
*/
package banking

import (
	"context"
	"time"
)

type StatusResolver struct {
	Transactions TransactionRepository
	Clock        Clock
}

func NewStatusResolver(txs TransactionRepository, clock Clock) *StatusResolver {
	if clock == nil {
		clock = SystemClock{}
	}
	return &StatusResolver{Transactions: txs, Clock: clock}
}

// GetStatus classifies the transaction named by req.Reference as seen from req.Channel.
func (r *StatusResolver) GetStatus(ctx context.Context, req StatusRequest) (StatusResponse, error) {
	if req.Reference == "" {
		return StatusResponse{}, ErrReferenceRequired
	}
	channel, err := ParseChannel(req.Channel)
	if err != nil {
		return StatusResponse{}, err
	}

	tx, err := r.Transactions.LoadByReference(ctx, req.Reference)
	if err != nil {
		return StatusResponse{}, err
	}
	if tx == nil {
		return StatusResponse{Reference: req.Reference, Status: StatusInvalid}, nil
	}

	resp := StatusResponse{
		Reference: req.Reference,
		Status:    Classify(tx.DateEpochOrZero(), r.Clock.Now(), channel),
	}
	if channel.Trusted() {
		resp.Amount = Int64(tx.Amount)
		if tx.Fee != nil {
			resp.Fee = Int64(*tx.Fee)
		}
	} else {
		resp.Amount = Int64(tx.Net())
	}
	return resp, nil
}

// Classify maps a transaction date to a status relative to now's calendar day.
func Classify(dateEpoch int64, now time.Time, channel Channel) Status {
	today, tomorrow := DayBounds(now)
	switch {
	case dateEpoch < today:
		return StatusSettled
	case dateEpoch < tomorrow:
		return StatusPending
	case channel == ChannelATM:
		return StatusPending
	default:
		return StatusFuture
	}
}
