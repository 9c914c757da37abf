package reconcile

import (
	"context"
	"time"

	"github.com/citizenwallet/multisig/pkg/multisig"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// PageSize is the number of proposals requested per list page
	PageSize uint32 = 10

	// votesPageSize is the largest page the cw3 contracts serve
	votesPageSize uint32 = 30
)

// Reconciler reads proposal and vote snapshots from the chain
type Reconciler struct {
	q   multisig.ChainQuerier
	log *zap.SugaredLogger
	now func() time.Time
}

func New(q multisig.ChainQuerier, log *zap.SugaredLogger) *Reconciler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Reconciler{
		q:   q,
		log: log,
		now: time.Now,
	}
}

// Page is one page of proposals, newest first
type Page struct {
	Proposals []multisig.Proposal `json:"proposals"`
	HasMore   bool                `json:"has_more"`
	Next      *uint64             `json:"next,omitempty"`
}

// Snapshot is a proposal and its votes as read together
type Snapshot struct {
	Proposal  *multisig.Proposal `json:"proposal"`
	Votes     []multisig.Vote    `json:"votes"`
	FetchedAt time.Time          `json:"fetched_at"`
}

func (r *Reconciler) query(ctx context.Context, contract, name string, q multisig.QueryMsg, out any) error {
	if err := r.q.ContractQuery(ctx, contract, q, out); err != nil {
		r.log.Debugw("contract query failed", "contract", contract, "query", name, "error", err)
		return &multisig.QueryError{Contract: contract, Query: name, Err: err}
	}

	return nil
}

// FetchProposal reads a single proposal
func (r *Reconciler) FetchProposal(ctx context.Context, contract string, id uint64) (*multisig.Proposal, error) {
	var p multisig.Proposal

	err := r.query(ctx, contract, "proposal", multisig.QueryMsg{Proposal: &multisig.ProposalRef{ProposalID: id}}, &p)
	if err != nil {
		return nil, err
	}

	p.FetchedAt = r.now()

	return &p, nil
}

// FetchVotes reads every vote cast on a proposal, following the contract's pagination
func (r *Reconciler) FetchVotes(ctx context.Context, contract string, id uint64) ([]multisig.Vote, error) {
	votes := []multisig.Vote{}

	limit := votesPageSize
	var startAfter *string
	for {
		var resp multisig.VoteListResponse

		q := multisig.QueryMsg{ListVotes: &multisig.ListVotesQuery{
			ProposalID: id,
			StartAfter: startAfter,
			Limit:      &limit,
		}}

		if err := r.query(ctx, contract, "list_votes", q, &resp); err != nil {
			return nil, err
		}

		if len(resp.Votes) > 0 && startAfter != nil && resp.Votes[len(resp.Votes)-1].Voter <= *startAfter {
			r.log.Warnw("vote pagination did not advance", "contract", contract, "proposal_id", id, "start_after", *startAfter)
			break
		}

		votes = append(votes, resp.Votes...)

		if uint32(len(resp.Votes)) < limit {
			break
		}

		last := resp.Votes[len(resp.Votes)-1].Voter
		startAfter = &last
	}

	return votes, nil
}

// ListProposals reads a page of proposals older than startBefore, or the newest
// page when startBefore is nil
func (r *Reconciler) ListProposals(ctx context.Context, contract string, startBefore *uint64) (*Page, error) {
	var resp multisig.ProposalListResponse

	q := multisig.QueryMsg{ReverseProposals: &multisig.ReverseProposals{
		StartBefore: startBefore,
		Limit:       PageSize,
	}}

	if err := r.query(ctx, contract, "reverse_proposals", q, &resp); err != nil {
		return nil, err
	}

	now := r.now()
	for i := range resp.Proposals {
		resp.Proposals[i].FetchedAt = now
	}

	page := &Page{
		Proposals: resp.Proposals,
		HasMore:   uint32(len(resp.Proposals)) == PageSize,
	}
	if page.Proposals == nil {
		page.Proposals = []multisig.Proposal{}
	}

	if page.HasMore {
		next := page.Proposals[len(page.Proposals)-1].ID
		page.Next = &next
	}

	return page, nil
}

// FetchDetail reads a proposal and its votes concurrently
func (r *Reconciler) FetchDetail(ctx context.Context, contract string, id uint64) (*Snapshot, error) {
	var (
		proposal *multisig.Proposal
		votes    []multisig.Vote
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		proposal, err = r.FetchProposal(gctx, contract, id)
		return err
	})

	g.Go(func() error {
		var err error
		votes, err = r.FetchVotes(gctx, contract, id)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Snapshot{
		Proposal:  proposal,
		Votes:     votes,
		FetchedAt: proposal.FetchedAt,
	}, nil
}

// ContractInfo reads the wasm metadata of a multisig contract
func (r *Reconciler) ContractInfo(ctx context.Context, contract string) (*multisig.ContractInfo, error) {
	info, err := r.q.ContractInfo(ctx, contract)
	if err != nil {
		return nil, &multisig.QueryError{Contract: contract, Query: "contract_info", Err: err}
	}

	return info, nil
}
