package ports

import "context"

// HoldFundsRequest asks the payment rail to move the milestone amount into
// escrow before the milestone can be marked held.
type HoldFundsRequest struct {
	ContractID  string
	MilestoneID string
	PayerID     string
	Amount      float64
	Currency    string
}

type HoldFundsResult struct {
	ReferenceID string
	Confirmed   bool
}

// PaymentClient is the external rail collaborator. This service never
// initiates settlement; it only asks for escrow holds and records the
// rail's confirmations.
type PaymentClient interface {
	HoldFunds(ctx context.Context, req HoldFundsRequest) (HoldFundsResult, error)
}
