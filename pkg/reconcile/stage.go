package reconcile

import (
	"time"

	"github.com/citizenwallet/multisig/internal/common"
	"github.com/citizenwallet/multisig/pkg/multisig"
)

// Stage is the lifecycle position of a proposal as shown to the user
type Stage string

const (
	StagePending  Stage = "pending"
	StageOpen     Stage = "open"
	StageExpired  Stage = "expired"
	StagePassed   Stage = "passed"
	StageRejected Stage = "rejected"
	StageExecuted Stage = "executed"

	// StageClosed is a rejected proposal whose close transaction was confirmed
	StageClosed Stage = "closed"
)

// Terminal reports whether no further action can be taken
func (s Stage) Terminal() bool {
	return s == StageExecuted || s == StageClosed
}

type Action string

const (
	ActionVote    Action = "vote"
	ActionExecute Action = "execute"
	ActionClose   Action = "close"
)

// StageOf derives the stage of a proposal. An open proposal past its time based
// expiry stays open on chain until someone closes it.
func StageOf(p *multisig.Proposal, now time.Time) Stage {
	switch p.Status {
	case multisig.StatusOpen:
		if p.Expires.Expired(now, 0) {
			return StageExpired
		}
		return StageOpen
	case multisig.StatusPassed:
		return StagePassed
	case multisig.StatusRejected:
		return StageRejected
	case multisig.StatusExecuted:
		return StageExecuted
	default:
		return StagePending
	}
}

// MyVote returns the vote cast by addr, if any
func MyVote(votes []multisig.Vote, addr string) *multisig.Vote {
	if addr == "" {
		return nil
	}

	v, ok := common.Find(votes, func(v multisig.Vote) bool {
		return common.IsSameAddress(v.Voter, addr)
	})
	if !ok {
		return nil
	}

	return &v
}

// Offered lists the actions available to voter at the given stage.
// A voter who already voted is shown their vote instead of the vote action.
func Offered(stage Stage, votes []multisig.Vote, voter string) []Action {
	actions := []Action{}

	switch stage {
	case StageOpen:
		if voter != "" && MyVote(votes, voter) == nil {
			actions = append(actions, ActionVote)
		}
	case StageExpired, StageRejected:
		actions = append(actions, ActionClose)
	case StagePassed:
		actions = append(actions, ActionExecute)
	}

	return actions
}

// Tally is the weight cast per vote option
type Tally struct {
	Yes     uint64 `json:"yes"`
	No      uint64 `json:"no"`
	Abstain uint64 `json:"abstain"`
	Veto    uint64 `json:"veto"`
}

func weightOf(votes []multisig.Vote, option multisig.VoteOption) uint64 {
	var w uint64
	for _, v := range common.Filter(votes, func(v multisig.Vote) bool { return v.Vote == option }) {
		w += v.Weight
	}
	return w
}

// TallyOf sums the weight of votes per option
func TallyOf(votes []multisig.Vote) Tally {
	return Tally{
		Yes:     weightOf(votes, multisig.VoteYes),
		No:      weightOf(votes, multisig.VoteNo),
		Abstain: weightOf(votes, multisig.VoteAbstain),
		Veto:    weightOf(votes, multisig.VoteVeto),
	}
}

// Detail is a snapshot with its derived stage and actions for one voter
type Detail struct {
	*Snapshot
	Stage   Stage          `json:"stage"`
	Tally   Tally          `json:"tally"`
	Actions []Action       `json:"actions"`
	MyVote  *multisig.Vote `json:"my_vote,omitempty"`
	Token   uint64         `json:"refresh_token"`
	Error   string         `json:"error,omitempty"`

	// ExpiresAt is set for time based expirations
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
