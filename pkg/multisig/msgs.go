package multisig

import "encoding/json"

// ExecuteMsg is the cw3 execute message, exactly one variant is set
type ExecuteMsg struct {
	Propose *ProposeMsg  `json:"propose,omitempty"`
	Vote    *VoteMsg     `json:"vote,omitempty"`
	Execute *ProposalRef `json:"execute,omitempty"`
	Close   *ProposalRef `json:"close,omitempty"`
}

type ProposeMsg struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Msgs        []json.RawMessage `json:"msgs"`
}

type VoteMsg struct {
	ProposalID uint64     `json:"proposal_id"`
	Vote       VoteOption `json:"vote"`
}

type ProposalRef struct {
	ProposalID uint64 `json:"proposal_id"`
}

// Kind names the variant, used to key in-flight submissions
func (m ExecuteMsg) Kind() string {
	switch {
	case m.Propose != nil:
		return "propose"
	case m.Vote != nil:
		return "vote"
	case m.Execute != nil:
		return "execute"
	case m.Close != nil:
		return "close"
	default:
		return ""
	}
}

func NewVoteMsg(proposalID uint64, vote VoteOption) ExecuteMsg {
	return ExecuteMsg{Vote: &VoteMsg{ProposalID: proposalID, Vote: vote}}
}

func NewExecuteMsg(proposalID uint64) ExecuteMsg {
	return ExecuteMsg{Execute: &ProposalRef{ProposalID: proposalID}}
}

func NewCloseMsg(proposalID uint64) ExecuteMsg {
	return ExecuteMsg{Close: &ProposalRef{ProposalID: proposalID}}
}

// QueryMsg is the cw3 query message, exactly one variant is set
type QueryMsg struct {
	Proposal         *ProposalRef      `json:"proposal,omitempty"`
	ListVotes        *ListVotesQuery   `json:"list_votes,omitempty"`
	ReverseProposals *ReverseProposals `json:"reverse_proposals,omitempty"`
}

type ListVotesQuery struct {
	ProposalID uint64  `json:"proposal_id"`
	StartAfter *string `json:"start_after,omitempty"`
	Limit      *uint32 `json:"limit,omitempty"`
}

type ReverseProposals struct {
	StartBefore *uint64 `json:"start_before,omitempty"`
	Limit       uint32  `json:"limit"`
}

type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// InstantiateMsg creates a new fixed multisig
type InstantiateMsg struct {
	Voters          []Voter  `json:"voters"`
	RequiredWeight  uint64   `json:"required_weight"`
	MaxVotingPeriod Duration `json:"max_voting_period"`
}

type Voter struct {
	Addr   string `json:"addr"`
	Weight uint64 `json:"weight"`
}

type Duration struct {
	Time   *uint64 `json:"time,omitempty"`
	Height *uint64 `json:"height,omitempty"`
}

const (
	TypeMsgExecuteContract     = "/cosmwasm.wasm.v1.MsgExecuteContract"
	TypeMsgInstantiateContract = "/cosmwasm.wasm.v1.MsgInstantiateContract"
)

// MsgExecuteContract is the chain message the wallet signs to call a contract
type MsgExecuteContract struct {
	Type     string     `json:"@type"`
	Sender   string     `json:"sender"`
	Contract string     `json:"contract"`
	Msg      ExecuteMsg `json:"msg"`
	Funds    []Coin     `json:"funds"`
}

func NewMsgExecuteContract(sender, contract string, msg ExecuteMsg) MsgExecuteContract {
	return MsgExecuteContract{
		Type:     TypeMsgExecuteContract,
		Sender:   sender,
		Contract: contract,
		Msg:      msg,
		Funds:    []Coin{},
	}
}

type MsgInstantiateContract struct {
	Type   string         `json:"@type"`
	Sender string         `json:"sender"`
	Admin  string         `json:"admin"`
	CodeID uint64         `json:"code_id,string"`
	Label  string         `json:"label"`
	Msg    InstantiateMsg `json:"msg"`
	Funds  []Coin         `json:"funds"`
}

func NewMsgInstantiateContract(sender string, codeID uint64, label string, msg InstantiateMsg) MsgInstantiateContract {
	return MsgInstantiateContract{
		Type:   TypeMsgInstantiateContract,
		Sender: sender,
		Admin:  sender,
		CodeID: codeID,
		Label:  label,
		Msg:    msg,
		Funds:  []Coin{},
	}
}
