package templates

import (
	"encoding/json"

	"github.com/citizenwallet/multisig/pkg/multisig"
)

type bankMsg struct {
	Bank bankSendMsg `json:"bank"`
}

type bankSendMsg struct {
	Send bankSend `json:"send"`
}

type bankSend struct {
	ToAddress string          `json:"to_address"`
	Amount    []multisig.Coin `json:"amount"`
}

type wasmMsg struct {
	Wasm wasmExecuteMsg `json:"wasm"`
}

type wasmExecuteMsg struct {
	Execute wasmExecute `json:"execute"`
}

type wasmExecute struct {
	ContractAddr string          `json:"contract_addr"`
	Msg          string          `json:"msg"`
	Funds        []multisig.Coin `json:"funds"`
}

// cw20 token messages
type cw20Transfer struct {
	Transfer cw20TransferBody `json:"transfer"`
}

type cw20TransferBody struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

type cw20Send struct {
	Send cw20SendBody `json:"send"`
}

type cw20SendBody struct {
	Contract string `json:"contract"`
	Amount   string `json:"amount"`
	Msg      string `json:"msg"`
}

// money market messages
type depositStable struct {
	DepositStable struct{} `json:"deposit_stable"`
}

type redeemStable struct {
	RedeemStable struct{} `json:"redeem_stable"`
}

func single(v any) ([]json.RawMessage, error) {
	b, err := marshal(v)
	if err != nil {
		return nil, err
	}

	return []json.RawMessage{b}, nil
}

func executeContract(contract string, inner any, funds []multisig.Coin) ([]json.RawMessage, error) {
	msg, err := EncodeBinary(inner)
	if err != nil {
		return nil, err
	}

	return single(wasmMsg{
		Wasm: wasmExecuteMsg{
			Execute: wasmExecute{
				ContractAddr: contract,
				Msg:          msg,
				Funds:        funds,
			},
		},
	})
}

func renderBankSend(v Values) ([]json.RawMessage, error) {
	return single(bankMsg{
		Bank: bankSendMsg{
			Send: bankSend{
				ToAddress: v["recipient"],
				Amount:    []multisig.Coin{{Denom: v["denom"], Amount: v["amount"]}},
			},
		},
	})
}

func renderTokenTransfer(v Values) ([]json.RawMessage, error) {
	return executeContract(v["token"], cw20Transfer{
		Transfer: cw20TransferBody{
			Recipient: v["recipient"],
			Amount:    v["amount"],
		},
	}, []multisig.Coin{})
}

func renderProtocolDeposit(v Values) ([]json.RawMessage, error) {
	return executeContract(v["market"], depositStable{}, []multisig.Coin{
		{Denom: v["denom"], Amount: v["amount"]},
	})
}

func renderProtocolWithdraw(v Values) ([]json.RawMessage, error) {
	redeem, err := EncodeBinary(redeemStable{})
	if err != nil {
		return nil, err
	}

	return executeContract(v["atoken"], cw20Send{
		Send: cw20SendBody{
			Contract: v["market"],
			Amount:   v["amount"],
			Msg:      redeem,
		},
	}, []multisig.Coin{})
}

func renderCustom(v Values) ([]json.RawMessage, error) {
	return ParseMessages(v["json"])
}
