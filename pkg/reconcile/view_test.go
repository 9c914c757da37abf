package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/citizenwallet/multisig/pkg/multisig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type refreshResult struct {
	snap *Snapshot
	err  error
}

func TestRefreshDiscardsStaleResponse(t *testing.T) {
	q := newTestQuerier(1)
	q.hold = make(chan struct{})

	v := NewViews(New(q, nil)).Get(testMultisig, 1)

	first := make(chan refreshResult)
	go func() {
		snap, err := v.Refresh(context.Background())
		first <- refreshResult{snap, err}
	}()

	require.Eventually(t, func() bool { return q.count("proposal") == 1 }, time.Second, time.Millisecond)

	snap, err := v.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fetch 2", snap.Proposal.Title)

	close(q.hold)

	res := <-first
	assert.ErrorIs(t, res.err, ErrStaleResponse)
	assert.Nil(t, res.snap)

	state, err := v.State()
	require.NoError(t, err)
	assert.Equal(t, "fetch 2", state.Proposal.Title)
}

func TestInvalidateDiscardsInFlight(t *testing.T) {
	q := newTestQuerier(1)
	q.hold = make(chan struct{})

	v := NewViews(New(q, nil)).Get(testMultisig, 1)

	first := make(chan refreshResult)
	go func() {
		snap, err := v.Refresh(context.Background())
		first <- refreshResult{snap, err}
	}()

	require.Eventually(t, func() bool { return q.count("proposal") == 1 }, time.Second, time.Millisecond)

	before := v.Token()
	assert.Equal(t, before+1, v.Confirmed(ActionVote))

	close(q.hold)

	res := <-first
	assert.ErrorIs(t, res.err, ErrStaleResponse)

	state, _ := v.State()
	assert.Nil(t, state)
}

func TestClosedViewIgnoresResponses(t *testing.T) {
	q := newTestQuerier(1)
	q.hold = make(chan struct{})

	views := NewViews(New(q, nil))
	v := views.Get(testMultisig, 1)

	first := make(chan refreshResult)
	go func() {
		snap, err := v.Refresh(context.Background())
		first <- refreshResult{snap, err}
	}()

	require.Eventually(t, func() bool { return q.count("proposal") == 1 }, time.Second, time.Millisecond)

	views.CloseAll()
	assert.True(t, v.Closed())
	assert.Equal(t, 0, views.Len())

	close(q.hold)

	res := <-first
	assert.ErrorIs(t, res.err, ErrViewClosed)

	_, err := v.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrViewClosed)

	// a new session gets a fresh view
	assert.NotSame(t, v, views.Get(testMultisig, 1))
}

func TestRefreshKeepsStaleSnapshotOnError(t *testing.T) {
	q := newTestQuerier(1)
	v := NewViews(New(q, nil)).Get(testMultisig, 1)

	_, err := v.Refresh(context.Background())
	require.NoError(t, err)

	q.setErr(errors.New("connection refused"))

	snap, err := v.Refresh(context.Background())

	var qerr *multisig.QueryError
	require.ErrorAs(t, err, &qerr)
	require.NotNil(t, snap)
	assert.Equal(t, "fetch 1", snap.Proposal.Title)

	d := v.Detail("", time.Now())
	require.NotNil(t, d)
	assert.Equal(t, "fetch 1", d.Proposal.Title)
	assert.Contains(t, d.Error, "connection refused")
}

func TestViewDetailClosedAfterConfirmedClose(t *testing.T) {
	q := newTestQuerier(1)
	p := q.proposals[1]
	p.Status = multisig.StatusRejected
	q.proposals[1] = p

	v := NewViews(New(q, nil)).Get(testMultisig, 1)

	_, err := v.Refresh(context.Background())
	require.NoError(t, err)

	d := v.Detail("voter", time.Now())
	assert.Equal(t, StageRejected, d.Stage)
	assert.Equal(t, []Action{ActionClose}, d.Actions)

	v.Confirmed(ActionClose)

	_, err = v.Refresh(context.Background())
	require.NoError(t, err)

	d = v.Detail("voter", time.Now())
	assert.Equal(t, StageClosed, d.Stage)
	assert.True(t, d.Stage.Terminal())
	assert.Empty(t, d.Actions)
}

func TestViewsInvalidateContract(t *testing.T) {
	views := NewViews(New(newTestQuerier(2), nil))

	a := views.Get(testMultisig, 1)
	b := views.Get(testMultisig, 2)
	c := views.Get("other", 1)

	views.InvalidateContract(testMultisig)

	assert.Equal(t, uint64(1), a.Token())
	assert.Equal(t, uint64(1), b.Token())
	assert.Equal(t, uint64(0), c.Token())
	assert.Same(t, a, views.Get(testMultisig, 1))

	views.Release(testMultisig, 1)
	assert.True(t, a.Closed())
	assert.Equal(t, 2, views.Len())
}

func TestLoadRefetchesOvertakenFirstResponse(t *testing.T) {
	q := newTestQuerier(1)
	q.hold = make(chan struct{})

	views := NewViews(New(q, nil))
	v := views.Get(testMultisig, 1)

	first := make(chan refreshResult)
	go func() {
		snap, err := v.Load(context.Background())
		first <- refreshResult{snap, err}
	}()

	require.Eventually(t, func() bool { return q.count("proposal") == 1 }, time.Second, time.Millisecond)

	// a proposal was created on the same multisig meanwhile
	views.InvalidateContract(testMultisig)

	close(q.hold)

	res := <-first
	require.NoError(t, res.err)
	require.NotNil(t, res.snap)
	assert.Equal(t, "fetch 2", res.snap.Proposal.Title)
	assert.NotNil(t, v.Detail("voter", time.Now()))
}

func TestLoadKeepsSnapshotWhenOvertaken(t *testing.T) {
	q := newTestQuerier(1)
	v := NewViews(New(q, nil)).Get(testMultisig, 1)

	_, err := v.Load(context.Background())
	require.NoError(t, err)

	q.hold = make(chan struct{})
	q.mu.Lock()
	q.calls["proposal"] = 0
	q.mu.Unlock()

	second := make(chan refreshResult)
	go func() {
		snap, err := v.Load(context.Background())
		second <- refreshResult{snap, err}
	}()

	require.Eventually(t, func() bool { return q.count("proposal") == 1 }, time.Second, time.Millisecond)

	v.Invalidate()
	close(q.hold)

	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, "fetch 1", res.snap.Proposal.Title)
	assert.Equal(t, 1, q.count("proposal"))
}

func TestCanceledRefreshIsNotRecorded(t *testing.T) {
	q := newTestQuerier(1)
	v := NewViews(New(q, nil)).Get(testMultisig, 1)

	_, err := v.Refresh(context.Background())
	require.NoError(t, err)

	q.setErr(fmt.Errorf("get proposal: %w", context.Canceled))

	snap, err := v.Refresh(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, snap)

	state, err := v.State()
	require.NoError(t, err)
	assert.Equal(t, "fetch 1", state.Proposal.Title)

	d := v.Detail("voter", time.Now())
	require.NotNil(t, d)
	assert.Empty(t, d.Error)
}

func TestViewDetailExpiresAt(t *testing.T) {
	q := newTestQuerier(1)
	at := "1646136000000000000"
	p := q.proposals[1]
	p.Expires = multisig.Expiration{AtTime: &at}
	q.proposals[1] = p

	v := NewViews(New(q, nil)).Get(testMultisig, 1)

	_, err := v.Refresh(context.Background())
	require.NoError(t, err)

	d := v.Detail("voter", time.Now())
	require.NotNil(t, d.ExpiresAt)
	assert.True(t, time.Date(2022, 3, 1, 12, 0, 0, 0, time.UTC).Equal(*d.ExpiresAt))
	assert.Equal(t, StageExpired, d.Stage)
}
