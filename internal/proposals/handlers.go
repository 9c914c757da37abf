package proposals

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"time"

	com "github.com/citizenwallet/multisig/internal/common"
	"github.com/citizenwallet/multisig/internal/wallet"
	"github.com/citizenwallet/multisig/pkg/draft"
	"github.com/citizenwallet/multisig/pkg/multisig"
	"github.com/citizenwallet/multisig/pkg/reconcile"
	"github.com/citizenwallet/multisig/pkg/templates"
	"github.com/citizenwallet/multisig/pkg/tracker"
	"github.com/go-chi/chi/v5"
)

type Service struct {
	r      *reconcile.Reconciler
	t      *tracker.Tracker
	reg    *templates.Registry
	prefix string

	now func() time.Time
}

func NewService(r *reconcile.Reconciler, t *tracker.Tracker, reg *templates.Registry, prefix string) *Service {
	return &Service{
		r:      r,
		t:      t,
		reg:    reg,
		prefix: prefix,
		now:    time.Now,
	}
}

type listItem struct {
	multisig.Proposal
	Stage reconcile.Stage `json:"stage"`
}

// List returns a page of proposals, newest first
func (s *Service) List(w http.ResponseWriter, r *http.Request) {
	addr, err := com.NormalizeAddress(chi.URLParam(r, "multisig_address"), s.prefix)
	if err != nil {
		com.ErrorFrom(w, err)
		return
	}

	var startBefore *uint64
	if q := r.URL.Query().Get("start_before"); q != "" {
		id, err := multisig.ParseProposalID(q)
		if err != nil {
			com.ErrorFrom(w, err)
			return
		}
		startBefore = &id
	}

	page, err := s.r.ListProposals(r.Context(), addr, startBefore)
	if err != nil {
		com.ErrorFrom(w, err)
		return
	}

	now := s.now()

	items := make([]listItem, 0, len(page.Proposals))
	for _, p := range page.Proposals {
		items = append(items, listItem{Proposal: p, Stage: reconcile.StageOf(&p, now)})
	}

	err = com.BodyMultiple(w, items, com.Pagination{
		Limit:       int(reconcile.PageSize),
		StartBefore: startBefore,
		Next:        page.Next,
		HasMore:     page.HasMore,
	})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// proposalRef parses the multisig address and proposal id of a request
func (s *Service) proposalRef(r *http.Request) (string, uint64, error) {
	addr, err := com.NormalizeAddress(chi.URLParam(r, "multisig_address"), s.prefix)
	if err != nil {
		return "", 0, err
	}

	id, err := multisig.ParseProposalID(chi.URLParam(r, "proposal_id"))
	if err != nil {
		return "", 0, err
	}

	return addr, id, nil
}

// target resolves the session, the multisig address and the proposal view of a request
func (s *Service) target(r *http.Request) (*wallet.Session, *reconcile.View, error) {
	sess, ok := wallet.FromContext(r.Context())
	if !ok {
		return nil, nil, multisig.ErrNotConnected
	}

	addr, id, err := s.proposalRef(r)
	if err != nil {
		return nil, nil, err
	}

	return sess, sess.Views().Get(addr, id), nil
}

// refresh re-fetches the view. A query failure keeps the previous snapshot when there is one.
func (s *Service) refresh(r *http.Request, sess *wallet.Session, v *reconcile.View) (*reconcile.Detail, error) {
	_, err := v.Load(r.Context())
	switch {
	case err == nil:
	case errors.Is(err, reconcile.ErrViewClosed):
		return nil, multisig.ErrNotConnected
	default:
		var qerr *multisig.QueryError
		if !errors.As(err, &qerr) && !errors.Is(err, reconcile.ErrStaleResponse) {
			return nil, err
		}
	}

	d := v.Detail(sess.Address(), s.now())
	if d == nil {
		var qerr *multisig.QueryError
		if errors.As(err, &qerr) {
			return nil, err
		}
		return nil, &multisig.QueryError{Contract: v.Key().Contract, Query: "proposal", Err: err}
	}

	return d, nil
}

// Get returns a proposal with its votes, lifecycle stage and the actions offered
// to the connected wallet
func (s *Service) Get(w http.ResponseWriter, r *http.Request) {
	sess, v, err := s.target(r)
	if err != nil {
		com.ErrorFrom(w, err)
		return
	}

	d, err := s.refresh(r, sess, v)
	if err != nil {
		com.ErrorFrom(w, err)
		return
	}

	err = com.Body(w, d, nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// Leave releases the proposal view when the user navigates away, responses
// still in flight for it are dropped
func (s *Service) Leave(w http.ResponseWriter, r *http.Request) {
	sess, ok := wallet.FromContext(r.Context())
	if !ok {
		com.ErrorFrom(w, multisig.ErrNotConnected)
		return
	}

	addr, id, err := s.proposalRef(r)
	if err != nil {
		com.ErrorFrom(w, err)
		return
	}

	sess.Views().Release(addr, id)

	w.WriteHeader(http.StatusNoContent)
}

type createRequest struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	ActionType  templates.ID     `json:"action_type"`
	Fields      templates.Fields `json:"fields"`
}

// Create renders a proposal draft and submits it to the multisig
func (s *Service) Create(w http.ResponseWriter, r *http.Request) {
	sess, ok := wallet.FromContext(r.Context())
	if !ok {
		com.ErrorFrom(w, multisig.ErrNotConnected)
		return
	}

	addr, err := com.NormalizeAddress(chi.URLParam(r, "multisig_address"), s.prefix)
	if err != nil {
		com.ErrorFrom(w, err)
		return
	}

	var req createRequest
	err = json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		com.ErrorFrom(w, multisig.NewValidationError("", "invalid request body"))
		return
	}

	if req.ActionType == "" {
		req.ActionType = templates.Custom
	}

	d, err := draft.FromTemplate(s.reg, req.Title, req.Description, req.ActionType, req.Fields)
	if err != nil {
		com.ErrorFrom(w, err)
		return
	}

	result, err := s.t.Execute(r.Context(), sess, addr, d.ProposeMsg())

	sess.Views().InvalidateContract(addr)

	com.Submission(w, result, err)
}

type voteRequest struct {
	Vote multisig.VoteOption `json:"vote"`
}

// Vote casts the connected wallet's vote
func (s *Service) Vote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil || !req.Vote.IsValid() {
		com.ErrorFrom(w, multisig.NewValidationError("vote", "must be yes or no"))
		return
	}

	s.act(w, r, reconcile.ActionVote, func(id uint64) multisig.ExecuteMsg {
		return multisig.NewVoteMsg(id, req.Vote)
	})
}

// Execute runs the messages of a passed proposal
func (s *Service) Execute(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, reconcile.ActionExecute, multisig.NewExecuteMsg)
}

// Close closes a rejected or expired proposal
func (s *Service) Close(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, reconcile.ActionClose, multisig.NewCloseMsg)
}

// act submits a proposal action after checking that the current snapshot offers it.
// The view is invalidated whatever the outcome.
func (s *Service) act(w http.ResponseWriter, r *http.Request, a reconcile.Action, msg func(id uint64) multisig.ExecuteMsg) {
	sess, v, err := s.target(r)
	if err != nil {
		com.ErrorFrom(w, err)
		return
	}

	d, err := s.refresh(r, sess, v)
	if err != nil {
		com.ErrorFrom(w, err)
		return
	}

	if !slices.Contains(d.Actions, a) {
		com.ErrorFrom(w, multisig.ErrActionUnavailable)
		return
	}

	key := v.Key()

	result, err := s.t.Execute(r.Context(), sess, key.Contract, msg(key.ProposalID))
	if result != nil && result.Confirmed {
		v.Confirmed(a)
	} else {
		v.Invalidate()
	}

	com.Submission(w, result, err)
}
