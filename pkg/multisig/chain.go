package multisig

import (
	"context"
)

// ChainQuerier reads contract state from a node
type ChainQuerier interface {
	ContractQuery(ctx context.Context, contract string, query any, out any) error
	ContractInfo(ctx context.Context, contract string) (*ContractInfo, error)
}

// TxQuerier looks up a transaction by hash, returning ErrTxNotFound while it is not indexed yet
type TxQuerier interface {
	TxInfo(ctx context.Context, hash string) (*TxInfo, error)
}

// Signer signs and broadcasts messages on behalf of the connected wallet
type Signer interface {
	Address() string
	Post(ctx context.Context, msgs ...any) (*PostResponse, error)
}

type PostResponse struct {
	Result struct {
		TxHash string `json:"txhash"`
	} `json:"result"`
}

type TxInfo struct {
	TxHash string       `json:"txhash"`
	Height int64        `json:"height,string"`
	Code   uint32       `json:"code"`
	RawLog string       `json:"raw_log"`
	Logs   []TxEventLog `json:"logs"`
	Events []Event      `json:"events"`
}

type TxEventLog struct {
	MsgIndex int     `json:"msg_index"`
	Events   []Event `json:"events"`
}

type Event struct {
	Type       string      `json:"type"`
	Attributes []Attribute `json:"attributes"`
}

type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Attribute returns the first value for any of the given event types and key
func (t *TxInfo) Attribute(key string, eventTypes ...string) (string, bool) {
	match := func(evs []Event) (string, bool) {
		for _, ev := range evs {
			for _, et := range eventTypes {
				if ev.Type != et {
					continue
				}
				for _, a := range ev.Attributes {
					if a.Key == key {
						return a.Value, true
					}
				}
			}
		}
		return "", false
	}

	for _, l := range t.Logs {
		if v, ok := match(l.Events); ok {
			return v, true
		}
	}

	return match(t.Events)
}

// SubmissionResult is the short lived outcome of one user action
type SubmissionResult struct {
	ID              string  `json:"id"`
	Action          string  `json:"action"`
	TransactionHash string  `json:"transaction_hash"`
	Confirmed       bool    `json:"confirmed"`
	Height          int64   `json:"height,omitempty"`
	ContractAddress string  `json:"contract_address,omitempty"`
	ProposalID      *uint64 `json:"proposal_id,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// WebhookMessager notifies operators about failures
type WebhookMessager interface {
	Notify(ctx context.Context, message string) error
	NotifyWarning(ctx context.Context, errorMessage error) error
	NotifyError(ctx context.Context, errorMessage error) error
}
