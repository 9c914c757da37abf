package bridge

import (
	"context"
	"errors"
	"time"

	"github.com/citizenwallet/multisig/pkg/multisig"
	"github.com/go-resty/resty/v2"
)

var ErrNoWallets = errors.New("no wallet available")

type Wallet struct {
	Address string `json:"address"`
}

type postRequest struct {
	Msgs []any `json:"msgs"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Service talks to the wallet bridge, which holds the keys and signs on the user's behalf
type Service struct {
	client *resty.Client
}

func NewService(endpoint string, timeout time.Duration) *Service {
	return &Service{
		client: resty.New().
			SetBaseURL(endpoint).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
	}
}

// Wallets lists the wallets exposed by the bridge
func (s *Service) Wallets(ctx context.Context) ([]Wallet, error) {
	wallets := []Wallet{}
	e := &errorResponse{}

	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&wallets).
		SetError(e).
		Get("/wallets")
	if err != nil {
		return nil, err
	}

	if resp.IsError() {
		if e.Message == "" {
			e.Message = resp.Status()
		}
		return nil, errors.New(e.Message)
	}

	return wallets, nil
}

// Post asks the bridge to sign and broadcast msgs as one transaction
func (s *Service) Post(ctx context.Context, msgs ...any) (*multisig.PostResponse, error) {
	result := &multisig.PostResponse{}
	e := &errorResponse{}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(postRequest{Msgs: msgs}).
		SetResult(result).
		SetError(e).
		Post("/post")
	if err != nil {
		return nil, &multisig.BroadcastError{Message: err.Error(), Err: err}
	}

	if resp.IsError() {
		if e.Message == "" {
			e.Message = resp.Status()
		}
		return nil, &multisig.BroadcastError{Message: e.Message}
	}

	return result, nil
}
