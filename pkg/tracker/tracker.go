package tracker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/citizenwallet/multisig/pkg/multisig"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultAttempts uint = 50
	DefaultInterval      = 500 * time.Millisecond
)

// Tracker broadcasts user actions through the connected wallet and waits for
// the chain to include them
type Tracker struct {
	txs multisig.TxQuerier
	wm  multisig.WebhookMessager
	log *zap.SugaredLogger

	attempts uint
	interval time.Duration
	timer    retry.Timer

	mu       sync.Mutex
	inflight map[string]struct{}
}

type Option func(*Tracker)

func WithAttempts(n uint) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.attempts = n
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithTimer replaces the wall clock used between confirmation polls
func WithTimer(timer retry.Timer) Option {
	return func(t *Tracker) {
		t.timer = timer
	}
}

func WithWebhook(wm multisig.WebhookMessager) Option {
	return func(t *Tracker) {
		t.wm = wm
	}
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(t *Tracker) {
		if log != nil {
			t.log = log
		}
	}
}

func New(txs multisig.TxQuerier, opts ...Option) *Tracker {
	t := &Tracker{
		txs:      txs,
		log:      zap.NewNop().Sugar(),
		attempts: DefaultAttempts,
		interval: DefaultInterval,
		inflight: map[string]struct{}{},
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// ActionKey identifies a user action so that it cannot be submitted twice concurrently
func ActionKey(contract string, msg multisig.ExecuteMsg) string {
	switch {
	case msg.Vote != nil:
		return contract + "/" + strconv.FormatUint(msg.Vote.ProposalID, 10) + "/vote"
	case msg.Execute != nil:
		return contract + "/" + strconv.FormatUint(msg.Execute.ProposalID, 10) + "/execute"
	case msg.Close != nil:
		return contract + "/" + strconv.FormatUint(msg.Close.ProposalID, 10) + "/close"
	default:
		return contract + "/" + msg.Kind()
	}
}

// Pending reports whether a submission for key is in flight
func (t *Tracker) Pending(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.inflight[key]
	return ok
}

func (t *Tracker) acquire(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.inflight[key]; ok {
		return false
	}

	t.inflight[key] = struct{}{}
	return true
}

func (t *Tracker) release(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.inflight, key)
}

// Execute submits a contract execute message on behalf of the signer
func (t *Tracker) Execute(ctx context.Context, signer multisig.Signer, contract string, msg multisig.ExecuteMsg) (*multisig.SubmissionResult, error) {
	if signer == nil {
		return nil, multisig.ErrNotConnected
	}

	chainMsg := multisig.NewMsgExecuteContract(signer.Address(), contract, msg)

	return t.Submit(ctx, signer, ActionKey(contract, msg), msg.Kind(), chainMsg)
}

// Instantiate submits the creation of a new multisig contract
func (t *Tracker) Instantiate(ctx context.Context, signer multisig.Signer, msg multisig.MsgInstantiateContract) (*multisig.SubmissionResult, error) {
	return t.Submit(ctx, signer, "instantiate/"+msg.Sender, "instantiate", msg)
}

// Submit broadcasts msgs as a single transaction under the action key and polls
// until it is included, fails or the attempts run out. The result is returned with
// any error so that the transaction hash is never lost.
func (t *Tracker) Submit(ctx context.Context, signer multisig.Signer, key, action string, msgs ...any) (*multisig.SubmissionResult, error) {
	if signer == nil {
		return nil, multisig.ErrNotConnected
	}

	if !t.acquire(key) {
		return nil, multisig.ErrSubmissionPending
	}
	defer t.release(key)

	result := &multisig.SubmissionResult{
		ID:     uuid.NewString(),
		Action: action,
	}

	log := t.log.With("id", result.ID, "action", action)

	resp, err := signer.Post(ctx, msgs...)
	if err != nil {
		var berr *multisig.BroadcastError
		if !errors.As(err, &berr) {
			berr = &multisig.BroadcastError{Message: err.Error(), Err: err}
		}

		log.Warnw("broadcast failed", "error", berr)
		return t.fail(ctx, result, berr)
	}

	hash := resp.Result.TxHash
	if hash == "" {
		return t.fail(ctx, result, &multisig.BroadcastError{Message: "wallet returned no transaction hash"})
	}

	result.TransactionHash = hash
	log = log.With("txhash", hash)
	log.Infow("transaction broadcast")

	info, err := t.poll(ctx, hash)
	if err != nil {
		if ctx.Err() != nil {
			result.Error = ctx.Err().Error()
			return result, fmt.Errorf("waiting for %s: %w", hash, ctx.Err())
		}

		terr := &multisig.TimeoutError{TxHash: hash, Attempts: t.attempts}
		result.Error = terr.Error()

		log.Warnw("transaction not confirmed", "attempts", t.attempts, "error", err)
		t.notify(ctx, true, terr)

		return result, terr
	}

	result.Height = info.Height

	if info.Code != 0 {
		log.Warnw("transaction failed", "code", info.Code, "raw_log", info.RawLog)
		return t.fail(ctx, result, &multisig.BroadcastError{TxHash: hash, Message: info.RawLog})
	}

	result.Confirmed = true

	if addr, ok := info.Attribute("_contract_address", "instantiate"); ok {
		result.ContractAddress = addr
	} else if addr, ok := info.Attribute("contract_address", "instantiate_contract"); ok {
		result.ContractAddress = addr
	}

	if v, ok := info.Attribute("proposal_id", "wasm"); ok {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			result.ProposalID = &id
		}
	}

	log.Infow("transaction confirmed", "height", info.Height)

	return result, nil
}

// poll queries the transaction until it is found. Every lookup error counts as a miss.
func (t *Tracker) poll(ctx context.Context, hash string) (*multisig.TxInfo, error) {
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(t.attempts),
		retry.Delay(t.interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			if !errors.Is(err, multisig.ErrTxNotFound) {
				t.log.Debugw("transaction lookup failed", "txhash", hash, "attempt", n, "error", err)
			}
		}),
	}
	if t.timer != nil {
		opts = append(opts, retry.WithTimer(t.timer))
	}

	return retry.DoWithData(func() (*multisig.TxInfo, error) {
		return t.txs.TxInfo(ctx, hash)
	}, opts...)
}

func (t *Tracker) fail(ctx context.Context, result *multisig.SubmissionResult, err error) (*multisig.SubmissionResult, error) {
	result.Error = multisig.UserMessage(err)
	t.notify(ctx, false, err)

	return result, err
}

func (t *Tracker) notify(ctx context.Context, warning bool, err error) {
	if t.wm == nil {
		return
	}

	var nerr error
	if warning {
		nerr = t.wm.NotifyWarning(ctx, err)
	} else {
		nerr = t.wm.NotifyError(ctx, err)
	}

	if nerr != nil {
		t.log.Debugw("webhook notification failed", "error", nerr)
	}
}
