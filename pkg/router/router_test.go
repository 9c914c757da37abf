package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/citizenwallet/multisig/internal/services/bridge"
	"github.com/citizenwallet/multisig/internal/wallet"
	"github.com/citizenwallet/multisig/pkg/multisig"
	"github.com/citizenwallet/multisig/pkg/reconcile"
	"github.com/citizenwallet/multisig/pkg/templates"
	"github.com/citizenwallet/multisig/pkg/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	testVoter     = "terra1qyqszqgpqyqszqgpqyqszqgpqyqszqgp5hm70u"
	testOtherVote = "terra1qgpqyqszqgpqyqszqgpqyqszqgpqyqsz9namy2"
	testMultisig  = "terra1zqgpqyqszqgpqyqszqgpqyqszqgpqyqszqgpqyqszqgpqyqszqgq5648wy"
	testHash      = "4E2F1A"
)

type testChain struct {
	mu        sync.Mutex
	proposals map[uint64]multisig.Proposal
	votes     map[uint64][]multisig.Vote
	misses    int
	code      uint32

	// hold blocks the next proposal query until closed, entered is closed once it is reached
	hold    chan struct{}
	entered chan struct{}
}

func (c *testChain) ContractQuery(ctx context.Context, contract string, query any, out any) error {
	msg := query.(multisig.QueryMsg)

	if msg.Proposal != nil {
		c.mu.Lock()
		hold, entered := c.hold, c.entered
		c.hold, c.entered = nil, nil
		c.mu.Unlock()

		if hold != nil {
			close(entered)
			<-hold
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var result any
	switch {
	case msg.Proposal != nil:
		p, ok := c.proposals[msg.Proposal.ProposalID]
		if !ok {
			return errors.New("proposal not found")
		}
		result = p
	case msg.ListVotes != nil:
		votes := c.votes[msg.ListVotes.ProposalID]
		if votes == nil {
			votes = []multisig.Vote{}
		}
		result = multisig.VoteListResponse{Votes: votes}
	case msg.ReverseProposals != nil:
		ids := []uint64{}
		for id := range c.proposals {
			if msg.ReverseProposals.StartBefore == nil || id < *msg.ReverseProposals.StartBefore {
				ids = append(ids, id)
			}
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
		if uint32(len(ids)) > msg.ReverseProposals.Limit {
			ids = ids[:msg.ReverseProposals.Limit]
		}
		list := multisig.ProposalListResponse{Proposals: []multisig.Proposal{}}
		for _, id := range ids {
			list.Proposals = append(list.Proposals, c.proposals[id])
		}
		result = list
	}

	b, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return json.Unmarshal(b, out)
}

func (c *testChain) ContractInfo(ctx context.Context, contract string) (*multisig.ContractInfo, error) {
	return &multisig.ContractInfo{Address: contract, CodeID: 595, Label: "team multisig"}, nil
}

func (c *testChain) TxInfo(ctx context.Context, hash string) (*multisig.TxInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.misses > 0 {
		c.misses--
		return nil, multisig.ErrTxNotFound
	}

	return &multisig.TxInfo{
		TxHash: hash,
		Height: 10,
		Code:   c.code,
		RawLog: "failed",
		Events: []multisig.Event{
			{Type: "instantiate", Attributes: []multisig.Attribute{{Key: "_contract_address", Value: testMultisig}}},
		},
	}, nil
}

type testBridge struct {
	err error
}

func (b *testBridge) Wallets(ctx context.Context) ([]bridge.Wallet, error) {
	return []bridge.Wallet{{Address: testVoter}}, nil
}

func (b *testBridge) Post(ctx context.Context, msgs ...any) (*multisig.PostResponse, error) {
	if b.err != nil {
		return nil, &multisig.BroadcastError{Message: b.err.Error(), Err: b.err}
	}

	resp := &multisig.PostResponse{}
	resp.Result.TxHash = testHash
	return resp, nil
}

type instantTimer struct{}

func (instantTimer) After(time.Duration) <-chan time.Time {
	c := make(chan time.Time, 1)
	c <- time.Now()
	return c
}

type testEnv struct {
	h      http.Handler
	chain  *testChain
	bridge *testBridge
	wallet *wallet.Connector
}

func newTestEnv(t *testing.T) *testEnv {
	log := zaptest.NewLogger(t).Sugar()

	chain := &testChain{
		proposals: map[uint64]multisig.Proposal{
			1: {ID: 1, Title: "open", Status: multisig.StatusOpen, Expires: multisig.Expiration{Never: &struct{}{}}},
			2: {ID: 2, Title: "passed", Status: multisig.StatusPassed},
			3: {ID: 3, Title: "voted", Status: multisig.StatusOpen, Expires: multisig.Expiration{Never: &struct{}{}}},
			4: {ID: 4, Title: "rejected", Status: multisig.StatusRejected},
		},
		votes: map[uint64][]multisig.Vote{
			3: {{Voter: testVoter, Vote: multisig.VoteYes, Weight: 1}, {Voter: testOtherVote, Vote: multisig.VoteNo, Weight: 1}},
		},
	}
	b := &testBridge{}

	rec := reconcile.New(chain, log)
	tr := tracker.New(chain, tracker.WithAttempts(3), tracker.WithTimer(instantTimer{}), tracker.WithLogger(log))
	c := wallet.NewConnector(rec, "terra", log, map[wallet.ConnectType]wallet.Bridge{wallet.Extension: b})

	r := NewServer("phoenix-1", "", "terra", 595, templates.NewRegistry("terra"), rec, tr, c)

	return &testEnv{h: r.Handler(), chain: chain, bridge: b, wallet: c}
}

type response struct {
	ResponseType string          `json:"response_type"`
	Object       json.RawMessage `json:"object"`
	Array        json.RawMessage `json:"array"`
	Meta         json.RawMessage `json:"meta"`
	Error        string          `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path, body string) (int, response) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	e.h.ServeHTTP(rec, req)

	var resp response
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}

	return rec.Code, resp
}

func (e *testEnv) connect(t *testing.T) {
	t.Helper()

	status, _ := e.do(t, http.MethodPost, "/session/EXTENSION", "")
	require.Equal(t, http.StatusOK, status)
}

func proposalPath(id uint64, action string) string {
	p := fmt.Sprintf("/multisig/%s/proposals/%d", testMultisig, id)
	if action != "" {
		p += "/" + action
	}
	return p
}

func TestHealthAndVersion(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	status, resp := e.do(t, http.MethodGet, "/version", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"version":"`+multisig.Version+`","chain_id":"phoenix-1"}`, string(resp.Object))
}

func TestSessionLifecycle(t *testing.T) {
	e := newTestEnv(t)

	status, resp := e.do(t, http.MethodGet, proposalPath(1, ""), "")
	assert.Equal(t, http.StatusPreconditionRequired, status)
	assert.Equal(t, "error", resp.ResponseType)
	assert.Equal(t, multisig.ErrNotConnected.Error(), resp.Error)

	status, _ = e.do(t, http.MethodPost, "/session/LEDGER", "")
	assert.Equal(t, http.StatusBadRequest, status)

	e.connect(t)

	status, resp = e.do(t, http.MethodGet, "/session", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(resp.Object), `"status":"WALLET_CONNECTED"`)
	assert.Contains(t, string(resp.Object), testVoter)

	status, _ = e.do(t, http.MethodGet, proposalPath(1, ""), "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = e.do(t, http.MethodDelete, "/session", "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = e.do(t, http.MethodGet, proposalPath(1, ""), "")
	assert.Equal(t, http.StatusPreconditionRequired, status)
}

func TestTemplates(t *testing.T) {
	e := newTestEnv(t)

	status, resp := e.do(t, http.MethodGet, "/templates", "")
	require.Equal(t, http.StatusOK, status)

	var list []templates.Template
	require.NoError(t, json.Unmarshal(resp.Array, &list))
	assert.Len(t, list, 5)

	status, resp = e.do(t, http.MethodPost, "/templates/bank_send/render", `{"recipient":"`+testVoter+`","amount":"1.5"}`)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"action_type":"bank_send","msgs":[{"bank":{"send":{"to_address":"`+testVoter+`","amount":[{"denom":"uusd","amount":"1500000"}]}}}]}`, string(resp.Object))

	status, resp = e.do(t, http.MethodPost, "/templates/bank_send/render", `{"recipient":"`+testVoter+`","amount":"-1"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `{"field":"amount","reason":"must be greater than zero"}`, string(resp.Object))

	status, _ = e.do(t, http.MethodPost, "/templates/unknown/render", `{}`)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestContractInfo(t *testing.T) {
	e := newTestEnv(t)

	status, resp := e.do(t, http.MethodGet, "/multisig/"+testMultisig, "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(resp.Object), `"label":"team multisig"`)

	status, _ = e.do(t, http.MethodGet, "/multisig/not-an-address", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestListProposals(t *testing.T) {
	e := newTestEnv(t)
	e.connect(t)

	status, resp := e.do(t, http.MethodGet, "/multisig/"+testMultisig+"/proposals", "")
	require.Equal(t, http.StatusOK, status)

	var items []struct {
		ID    uint64          `json:"id"`
		Stage reconcile.Stage `json:"stage"`
	}
	require.NoError(t, json.Unmarshal(resp.Array, &items))
	require.Len(t, items, 4)
	assert.Equal(t, uint64(4), items[0].ID)
	assert.Equal(t, reconcile.StageRejected, items[0].Stage)
	assert.JSONEq(t, `{"limit":10,"has_more":false}`, string(resp.Meta))

	status, resp = e.do(t, http.MethodGet, "/multisig/"+testMultisig+"/proposals?start_before=3", "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(resp.Array, &items))
	assert.Len(t, items, 2)

	status, _ = e.do(t, http.MethodGet, "/multisig/"+testMultisig+"/proposals?start_before=x", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestProposalDetail(t *testing.T) {
	e := newTestEnv(t)
	e.connect(t)

	var d struct {
		Stage   reconcile.Stage    `json:"stage"`
		Actions []reconcile.Action `json:"actions"`
		MyVote  *multisig.Vote     `json:"my_vote"`
	}

	status, resp := e.do(t, http.MethodGet, proposalPath(1, ""), "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(resp.Object, &d))
	assert.Equal(t, reconcile.StageOpen, d.Stage)
	assert.Equal(t, []reconcile.Action{reconcile.ActionVote}, d.Actions)
	assert.Nil(t, d.MyVote)

	status, resp = e.do(t, http.MethodGet, proposalPath(3, ""), "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(resp.Object, &d))
	assert.Empty(t, d.Actions)
	require.NotNil(t, d.MyVote)
	assert.Equal(t, multisig.VoteYes, d.MyVote.Vote)

	status, _ = e.do(t, http.MethodGet, proposalPath(99, ""), "")
	assert.Equal(t, http.StatusBadGateway, status)
}

func TestProposalDetailDuringCreate(t *testing.T) {
	e := newTestEnv(t)
	e.connect(t)

	hold := make(chan struct{})
	entered := make(chan struct{})
	e.chain.mu.Lock()
	e.chain.hold, e.chain.entered = hold, entered
	e.chain.mu.Unlock()

	type detailResult struct {
		status int
		resp   response
	}

	done := make(chan detailResult)
	go func() {
		status, resp := e.do(t, http.MethodGet, proposalPath(1, ""), "")
		done <- detailResult{status, resp}
	}()

	<-entered

	status, resp := e.do(t, http.MethodPost, "/multisig/"+testMultisig+"/proposals", `{"title":"rent","description":"pay rent","action_type":"bank_send","fields":{"recipient":"`+testVoter+`","amount":"10"}}`)
	require.Equal(t, http.StatusOK, status, resp.Error)

	close(hold)

	res := <-done
	require.Equal(t, http.StatusOK, res.status, res.resp.Error)
	assert.Contains(t, string(res.resp.Object), `"title":"open"`)
}

func TestProposalLeave(t *testing.T) {
	e := newTestEnv(t)
	e.connect(t)

	status, _ := e.do(t, http.MethodGet, proposalPath(1, ""), "")
	require.Equal(t, http.StatusOK, status)

	sess, err := e.wallet.Session()
	require.NoError(t, err)
	require.Equal(t, 1, sess.Views().Len())

	status, _ = e.do(t, http.MethodDelete, proposalPath(1, ""), "")
	assert.Equal(t, http.StatusNoContent, status)
	assert.Equal(t, 0, sess.Views().Len())

	status, _ = e.do(t, http.MethodDelete, proposalPath(1, ""), "")
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = e.do(t, http.MethodDelete, "/multisig/"+testMultisig+"/proposals/x", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestProposalActions(t *testing.T) {
	e := newTestEnv(t)
	e.connect(t)

	var result multisig.SubmissionResult

	status, resp := e.do(t, http.MethodPost, proposalPath(1, "vote"), `{"vote":"yes"}`)
	require.Equal(t, http.StatusOK, status, resp.Error)
	require.NoError(t, json.Unmarshal(resp.Object, &result))
	assert.True(t, result.Confirmed)
	assert.Equal(t, testHash, result.TransactionHash)

	status, _ = e.do(t, http.MethodPost, proposalPath(1, "vote"), `{"vote":"abstain"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	// already voted
	status, _ = e.do(t, http.MethodPost, proposalPath(3, "vote"), `{"vote":"no"}`)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = e.do(t, http.MethodPost, proposalPath(1, "execute"), "")
	assert.Equal(t, http.StatusConflict, status)

	status, _ = e.do(t, http.MethodPost, proposalPath(2, "execute"), "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = e.do(t, http.MethodPost, proposalPath(4, "close"), "")
	assert.Equal(t, http.StatusOK, status)

	// closing is terminal once confirmed
	status, _ = e.do(t, http.MethodPost, proposalPath(4, "close"), "")
	assert.Equal(t, http.StatusConflict, status)
}

func TestProposalActionFailures(t *testing.T) {
	t.Run("broadcast", func(t *testing.T) {
		e := newTestEnv(t)
		e.connect(t)
		e.bridge.err = errors.New("User Denied")

		status, resp := e.do(t, http.MethodPost, proposalPath(2, "execute"), "")
		assert.Equal(t, http.StatusBadGateway, status)
		assert.Equal(t, "User Denied", resp.Error)
	})

	t.Run("timeout", func(t *testing.T) {
		e := newTestEnv(t)
		e.connect(t)
		e.chain.misses = 3

		status, resp := e.do(t, http.MethodPost, proposalPath(2, "execute"), "")
		assert.Equal(t, http.StatusAccepted, status)

		var result multisig.SubmissionResult
		require.NoError(t, json.Unmarshal(resp.Object, &result))
		assert.False(t, result.Confirmed)
		assert.Equal(t, testHash, result.TransactionHash)
		assert.Contains(t, result.Error, "may still be included")
	})

	t.Run("failed on chain", func(t *testing.T) {
		e := newTestEnv(t)
		e.connect(t)
		e.chain.code = 5

		status, resp := e.do(t, http.MethodPost, proposalPath(2, "execute"), "")
		assert.Equal(t, http.StatusBadGateway, status)
		assert.Contains(t, string(resp.Object), testHash)
	})
}

func TestCreateProposal(t *testing.T) {
	e := newTestEnv(t)
	e.connect(t)

	path := "/multisig/" + testMultisig + "/proposals"

	status, resp := e.do(t, http.MethodPost, path, `{"title":"","description":"","action_type":"bank_send","fields":{}}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "All fields are required.", resp.Error)

	status, resp = e.do(t, http.MethodPost, path, `{"title":"t","description":"d","fields":{"json":"{\"__proto__\":{}}"}}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, resp.Error, "forbidden key")

	status, resp = e.do(t, http.MethodPost, path, `{"title":"rent","description":"pay rent","action_type":"bank_send","fields":{"recipient":"`+testVoter+`","amount":"10"}}`)
	require.Equal(t, http.StatusOK, status, resp.Error)

	var result multisig.SubmissionResult
	require.NoError(t, json.Unmarshal(resp.Object, &result))
	assert.Equal(t, "propose", result.Action)
	assert.True(t, result.Confirmed)
}

func TestCreateMultisig(t *testing.T) {
	e := newTestEnv(t)

	body := `{"voters":[{"addr":"` + testVoter + `","weight":"1"},{"addr":"` + testOtherVote + `","weight":"1"}],"threshold":"2","duration":"604800"}`

	status, _ := e.do(t, http.MethodPost, "/multisig", body)
	assert.Equal(t, http.StatusPreconditionRequired, status)

	e.connect(t)

	status, resp := e.do(t, http.MethodPost, "/multisig", `{"voters":[{"addr":"","weight":"1"}],"threshold":"1","duration":"60"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "All fields are required.", resp.Error)

	status, resp = e.do(t, http.MethodPost, "/multisig", body)
	require.Equal(t, http.StatusOK, status, resp.Error)

	var result multisig.SubmissionResult
	require.NoError(t, json.Unmarshal(resp.Object, &result))
	assert.Equal(t, "instantiate", result.Action)
	assert.Equal(t, testMultisig, result.ContractAddress)
}

func TestOptionsMiddleware(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/templates/", nil)
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
