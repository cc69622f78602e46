package settlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"

	"github.com/vyronamart/groupbuy-backend/pkg/square"
)

// RefundKey derives the deterministic idempotency key for a contribution
// refund.
func RefundKey(campaignID, contributionID uuid.UUID) string {
	return fmt.Sprintf("refund:%s:%s", campaignID, contributionID)
}

// SquareRefunder adapts the Square client to the coordinator's refund
// interface.
type SquareRefunder struct {
	client *square.Client
}

// NewSquareRefunder wraps the Square client.
func NewSquareRefunder(client *square.Client) (*SquareRefunder, error) {
	if client == nil {
		return nil, fmt.Errorf("square client required")
	}
	return &SquareRefunder{client: client}, nil
}

func (p *SquareRefunder) Refund(ctx context.Context, req RefundRequest) (string, error) {
	refund, err := p.client.RefundPayment(ctx, square.RefundCreateParams{
		PaymentID:      req.PaymentID,
		AmountCents:    int64(req.AmountCents),
		Currency:       req.Currency,
		IdempotencyKey: req.IdempotencyKey,
		Reason:         req.Reason,
	})
	if err != nil {
		return "", err
	}
	return refundResultID(refund, req.PaymentID)
}

func refundResultID(refund *sq.PaymentRefund, paymentID string) (string, error) {
	if id := refund.GetID(); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("refund for payment %s returned no id", paymentID)
}
