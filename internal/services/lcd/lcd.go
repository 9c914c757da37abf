package lcd

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/citizenwallet/multisig/pkg/multisig"
	"github.com/go-resty/resty/v2"
)

const (
	smartQueryPath   = "/cosmwasm/wasm/v1/contract/{address}/smart/{query}"
	contractInfoPath = "/cosmwasm/wasm/v1/contract/{address}"
	txPath           = "/cosmos/tx/v1beta1/txs/{hash}"

	// codeNotFound is the grpc status code for a missing resource
	codeNotFound = 5
)

// Error is the grpc-gateway error body returned by the node
type Error struct {
	Status  int    `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("lcd request failed with status %d", e.Status)
	}

	return fmt.Sprintf("lcd request failed with status %d: %s", e.Status, e.Message)
}

func (e *Error) NotFound() bool {
	return e.Status == http.StatusNotFound || e.Code == codeNotFound
}

// Service queries a node over its LCD REST API
type Service struct {
	client *resty.Client
}

func NewService(endpoint string, timeout time.Duration) *Service {
	return &Service{
		client: resty.New().
			SetBaseURL(endpoint).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

func (s *Service) get(ctx context.Context, path string, params map[string]string, out any) error {
	lerr := &Error{}

	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParams(params).
		SetResult(out).
		SetError(lerr).
		Get(path)
	if err != nil {
		return err
	}

	if resp.IsError() {
		lerr.Status = resp.StatusCode()
		return lerr
	}

	return nil
}

type smartQueryResponse struct {
	Data json.RawMessage `json:"data"`
}

// ContractQuery runs a smart query against a contract and decodes its data into out
func (s *Service) ContractQuery(ctx context.Context, contract string, query any, out any) error {
	b, err := json.Marshal(query)
	if err != nil {
		return err
	}

	var resp smartQueryResponse

	err = s.get(ctx, smartQueryPath, map[string]string{
		"address": contract,
		"query":   base64.URLEncoding.EncodeToString(b),
	}, &resp)
	if err != nil {
		return err
	}

	if len(resp.Data) == 0 {
		return fmt.Errorf("empty response for contract %s", contract)
	}

	return json.Unmarshal(resp.Data, out)
}

type contractInfoResponse struct {
	Address      string                `json:"address"`
	ContractInfo multisig.ContractInfo `json:"contract_info"`
}

// ContractInfo reads the wasm metadata of a contract
func (s *Service) ContractInfo(ctx context.Context, contract string) (*multisig.ContractInfo, error) {
	var resp contractInfoResponse

	err := s.get(ctx, contractInfoPath, map[string]string{"address": contract}, &resp)
	if err != nil {
		return nil, err
	}

	info := resp.ContractInfo
	info.Address = resp.Address
	if info.Address == "" {
		info.Address = contract
	}

	return &info, nil
}

type txResponse struct {
	TxResponse *multisig.TxInfo `json:"tx_response"`
}

// TxInfo looks up an included transaction, ErrTxNotFound means it is not indexed yet
func (s *Service) TxInfo(ctx context.Context, hash string) (*multisig.TxInfo, error) {
	var resp txResponse

	err := s.get(ctx, txPath, map[string]string{"hash": hash}, &resp)
	if err != nil {
		var lerr *Error
		if errors.As(err, &lerr) && lerr.NotFound() {
			return nil, fmt.Errorf("%w: %s", multisig.ErrTxNotFound, hash)
		}
		return nil, err
	}

	if resp.TxResponse == nil {
		return nil, fmt.Errorf("%w: %s", multisig.ErrTxNotFound, hash)
	}

	return resp.TxResponse, nil
}
