package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrStaleResponse is returned when a newer fetch was issued while this one was in flight
	ErrStaleResponse = errors.New("stale response discarded")

	// ErrViewClosed is returned for responses arriving after the view was closed
	ErrViewClosed = errors.New("view closed")
)

// staleRetries bounds how often Load repeats a fetch that was overtaken while
// the view had no snapshot yet
const staleRetries = 2

type Key struct {
	Contract   string
	ProposalID uint64
}

// View owns the cached snapshot of one proposal. Every fetch and every mutating
// action advances the refresh token, a response is only applied while the token
// it was issued under is still current.
type View struct {
	r   *Reconciler
	key Key

	mu       sync.Mutex
	token    uint64
	closed   bool
	snapshot *Snapshot
	err      error

	// closeConfirmed is set once a close transaction for a rejected proposal
	// was confirmed through this view
	closeConfirmed bool
}

func newView(r *Reconciler, key Key) *View {
	return &View{r: r, key: key}
}

func (v *View) Key() Key {
	return v.key
}

func (v *View) Token() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.token
}

// Invalidate advances the refresh token so that every in-flight fetch is discarded
func (v *View) Invalidate() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.token++
	return v.token
}

// Confirmed records a confirmed mutating action and invalidates the view
func (v *View) Confirmed(a Action) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	if a == ActionClose {
		v.closeConfirmed = true
	}

	v.token++
	return v.token
}

// Close makes the view ignore every later response
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.closed = true
}

func (v *View) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.closed
}

// Refresh fetches a new snapshot under a new refresh token. A failed fetch keeps
// the previous snapshot, which is returned together with the error.
func (v *View) Refresh(ctx context.Context) (*Snapshot, error) {
	token, err := v.begin()
	if err != nil {
		return nil, err
	}

	snap, err := v.r.FetchDetail(ctx, v.key.Contract, v.key.ProposalID)

	return v.apply(token, snap, err)
}

// Load refreshes the view. A response overtaken by a newer token is dropped
// quietly when the view already holds a snapshot and fetched again when it does not.
func (v *View) Load(ctx context.Context) (*Snapshot, error) {
	var err error
	for i := 0; i <= staleRetries; i++ {
		var snap *Snapshot
		snap, err = v.Refresh(ctx)
		if !errors.Is(err, ErrStaleResponse) {
			return snap, err
		}

		if state, _ := v.State(); state != nil {
			return state, nil
		}
	}

	return nil, err
}

func (v *View) begin() (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return 0, ErrViewClosed
	}

	v.token++
	return v.token, nil
}

func (v *View) apply(token uint64, snap *Snapshot, err error) (*Snapshot, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil, ErrViewClosed
	}

	if token != v.token {
		return nil, ErrStaleResponse
	}

	if err != nil {
		// a request abandoned by its caller says nothing about the chain
		if !errors.Is(err, context.Canceled) {
			v.err = err
		}
		return v.snapshot, err
	}

	v.snapshot = snap
	v.err = nil

	return snap, nil
}

// State returns the last applied snapshot and the error of the last fetch
func (v *View) State() (*Snapshot, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.snapshot, v.err
}

// Detail derives the stage and offered actions of the current snapshot for voter
func (v *View) Detail(voter string, now time.Time) *Detail {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.snapshot == nil {
		return nil
	}

	stage := StageOf(v.snapshot.Proposal, now)
	if stage == StageRejected && v.closeConfirmed {
		stage = StageClosed
	}

	d := &Detail{
		Snapshot: v.snapshot,
		Stage:    stage,
		Tally:    TallyOf(v.snapshot.Votes),
		Actions:  Offered(stage, v.snapshot.Votes, voter),
		MyVote:   MyVote(v.snapshot.Votes, voter),
		Token:    v.token,
	}
	if at, ok := v.snapshot.Proposal.ExpiresAt(); ok {
		d.ExpiresAt = &at
	}
	if v.err != nil {
		d.Error = v.err.Error()
	}

	return d
}

// Views holds the proposal views of one wallet session
type Views struct {
	r *Reconciler

	mu    sync.Mutex
	views map[Key]*View
}

func NewViews(r *Reconciler) *Views {
	return &Views{
		r:     r,
		views: map[Key]*View{},
	}
}

// Get returns the view of a proposal, creating it on first use
func (vs *Views) Get(contract string, id uint64) *View {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	key := Key{Contract: contract, ProposalID: id}

	v, ok := vs.views[key]
	if !ok {
		v = newView(vs.r, key)
		vs.views[key] = v
	}

	return v
}

// Release closes and forgets the view of a proposal
func (vs *Views) Release(contract string, id uint64) {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	key := Key{Contract: contract, ProposalID: id}
	if v, ok := vs.views[key]; ok {
		v.Close()
		delete(vs.views, key)
	}
}

// InvalidateContract advances the token of every view of contract
func (vs *Views) InvalidateContract(contract string) {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	for k, v := range vs.views {
		if k.Contract == contract {
			v.Invalidate()
		}
	}
}

// CloseAll closes every view, later Get calls start from fresh views
func (vs *Views) CloseAll() {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	for k, v := range vs.views {
		v.Close()
		delete(vs.views, k)
	}
}

func (vs *Views) Len() int {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	return len(vs.views)
}
