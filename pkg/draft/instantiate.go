package draft

import (
	"strconv"
	"strings"

	"github.com/citizenwallet/multisig/internal/common"
	"github.com/citizenwallet/multisig/pkg/multisig"
)

const (
	DefaultVotingPeriod uint64 = 604800
	DefaultLabel               = "cw3 multisig"

	MaxWeight       = 999
	MaxVotingPeriod = 2147483647
)

// VoterInput is one address/weight row of the create multisig form
type VoterInput struct {
	Addr   string `json:"addr"`
	Weight string `json:"weight"`
}

// InstantiateInput holds the raw create multisig form
type InstantiateInput struct {
	Voters    []VoterInput `json:"voters"`
	Threshold string       `json:"threshold"`
	Duration  string       `json:"duration"`
	Label     string       `json:"label"`
}

// InstantiateDraft is a validated request to create a new fixed multisig
type InstantiateDraft struct {
	CodeID uint64
	Label  string
	Msg    multisig.InstantiateMsg
}

// TotalWeight sums the weights of every voter
func (d *InstantiateDraft) TotalWeight() uint64 {
	var total uint64
	for _, v := range d.Msg.Voters {
		total += v.Weight
	}
	return total
}

// ChainMsg builds the instantiate message signed by sender, who also becomes the admin
func (d *InstantiateDraft) ChainMsg(sender string) multisig.MsgInstantiateContract {
	return multisig.NewMsgInstantiateContract(sender, d.CodeID, d.Label, d.Msg)
}

// BuildInstantiate validates the create multisig form
func BuildInstantiate(in InstantiateInput, codeID uint64, prefix string) (*InstantiateDraft, error) {
	if len(in.Voters) == 0 {
		return nil, multisig.NewValidationError("voters", RequiredReason)
	}

	threshold, thresholdErr := parseBounded(in.Threshold, MaxWeight)
	duration, durationErr := parseBounded(in.Duration, MaxVotingPeriod)
	if thresholdErr != nil || durationErr != nil {
		return nil, multisig.NewValidationError("", RequiredReason)
	}

	voters := make([]multisig.Voter, 0, len(in.Voters))
	seen := map[string]bool{}
	var total uint64
	for i, v := range in.Voters {
		field := "voters[" + strconv.Itoa(i) + "]"

		addr := strings.TrimSpace(v.Addr)
		weight, err := parseBounded(v.Weight, MaxWeight)
		if addr == "" || err != nil {
			return nil, multisig.NewValidationError("", RequiredReason)
		}

		addr, err = common.NormalizeAddress(addr, prefix)
		if err != nil {
			return nil, multisig.NewValidationError(field+".addr", err.Error())
		}

		if seen[addr] {
			return nil, multisig.NewValidationError(field+".addr", "duplicate voter")
		}
		seen[addr] = true

		total += weight
		voters = append(voters, multisig.Voter{Addr: addr, Weight: weight})
	}

	if threshold > total {
		return nil, multisig.NewValidationError("threshold", "must not exceed the total weight of "+strconv.FormatUint(total, 10))
	}

	label := strings.TrimSpace(in.Label)
	if label == "" {
		label = DefaultLabel
	}

	return &InstantiateDraft{
		CodeID: codeID,
		Label:  label,
		Msg: multisig.InstantiateMsg{
			Voters:          voters,
			RequiredWeight:  threshold,
			MaxVotingPeriod: multisig.Duration{Time: &duration},
		},
	}, nil
}

// parseBounded parses a positive integer no larger than max
func parseBounded(s string, max uint64) (uint64, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > max {
		return 0, strconv.ErrRange
	}
	return n, nil
}
