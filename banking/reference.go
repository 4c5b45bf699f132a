package banking

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// =============================================================================
// REFERENCE GENERATION
// =============================================================================

// ReferenceLength is the size of a server-generated reference.
const ReferenceLength = 8

// NewReferenceCandidate draws 8 uppercase hex characters from a random
// (version 4) UUID. Uniqueness is NOT guaranteed; see GenerateReference.
func NewReferenceCandidate() string {
	id := uuid.New().String()
	return strings.ToUpper(id[:ReferenceLength])
}

// GenerateReference draws candidates until one is unused in the ledger.
// With 32 random bits per draw the loop almost always runs once.
func GenerateReference(ctx context.Context, txs TransactionRepository, draw func() string) (string, error) {
	if draw == nil {
		draw = NewReferenceCandidate
	}
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		ref := draw()
		n, err := txs.CountByReference(ctx, ref)
		if err != nil {
			return "", err
		}
		if n == 0 {
			return ref, nil
		}
	}
}
