package multisig

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusOpen     Status = "open"
	StatusPassed   Status = "passed"
	StatusRejected Status = "rejected"
	StatusExecuted Status = "executed"
)

type VoteOption string

const (
	VoteYes     VoteOption = "yes"
	VoteNo      VoteOption = "no"
	VoteAbstain VoteOption = "abstain"
	VoteVeto    VoteOption = "veto"
)

// IsValid reports whether the option is one the dashboard lets a voter cast
func (v VoteOption) IsValid() bool {
	return v == VoteYes || v == VoteNo
}

// Expiration mirrors the cw-utils Expiration enum, exactly one field is set
type Expiration struct {
	AtHeight *uint64   `json:"at_height,omitempty"`
	AtTime   *string   `json:"at_time,omitempty"`
	Never    *struct{} `json:"never,omitempty"`
}

// Time returns the expiry as a wall clock time when the expiration is time based
func (e Expiration) Time() (time.Time, bool) {
	if e.AtTime == nil {
		return time.Time{}, false
	}

	nanos, err := strconv.ParseInt(*e.AtTime, 10, 64)
	if err != nil {
		return time.Time{}, false
	}

	return time.Unix(0, nanos).UTC(), true
}

// Expired reports whether the expiration has passed at the given time and height.
// A zero height skips height based expirations.
func (e Expiration) Expired(now time.Time, height uint64) bool {
	switch {
	case e.AtTime != nil:
		t, ok := e.Time()
		return ok && !now.Before(t)
	case e.AtHeight != nil:
		return height > 0 && height >= *e.AtHeight
	default:
		return false
	}
}

type Proposal struct {
	ID          uint64            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Msgs        []json.RawMessage `json:"msgs"`
	Status      Status            `json:"status"`
	Expires     Expiration        `json:"expires"`
	Threshold   json.RawMessage   `json:"threshold,omitempty"`
	Proposer    string            `json:"proposer,omitempty"`

	// FetchedAt is set locally when the snapshot is read from the chain
	FetchedAt time.Time `json:"fetched_at"`
}

// ExpiresAt returns the time based expiry, if any
func (p *Proposal) ExpiresAt() (time.Time, bool) {
	return p.Expires.Time()
}

type Vote struct {
	ProposalID uint64     `json:"proposal_id,omitempty"`
	Voter      string     `json:"voter"`
	Vote       VoteOption `json:"vote"`
	Weight     uint64     `json:"weight"`
}

type ProposalListResponse struct {
	Proposals []Proposal `json:"proposals"`
}

type VoteListResponse struct {
	Votes []Vote `json:"votes"`
}

// ContractInfo is the subset of the wasm module's contract metadata the dashboard shows
type ContractInfo struct {
	Address string `json:"address"`
	CodeID  uint64 `json:"code_id,string"`
	Creator string `json:"creator"`
	Admin   string `json:"admin"`
	Label   string `json:"label"`
}

var ErrInvalidProposalID = errors.New("invalid proposal id")

// ParseProposalID parses a proposal id from a url parameter
func ParseProposalID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidProposalID, s)
	}

	return id, nil
}
