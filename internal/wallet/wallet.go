package wallet

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/citizenwallet/multisig/internal/common"
	"github.com/citizenwallet/multisig/internal/services/bridge"
	"github.com/citizenwallet/multisig/pkg/multisig"
	"github.com/citizenwallet/multisig/pkg/reconcile"
	"go.uber.org/zap"
)

type ConnectType string

const (
	Extension       ConnectType = "EXTENSION"
	ChromeExtension ConnectType = "CHROME_EXTENSION"
	WalletConnect   ConnectType = "WALLETCONNECT"
)

type Status string

const (
	StatusNotConnected Status = "WALLET_NOT_CONNECTED"
	StatusConnected    Status = "WALLET_CONNECTED"
)

var ErrUnsupportedConnectType = errors.New("unsupported connect type")

// Bridge is a wallet backend able to list accounts and sign transactions
type Bridge interface {
	Wallets(ctx context.Context) ([]bridge.Wallet, error)
	Post(ctx context.Context, msgs ...any) (*multisig.PostResponse, error)
}

// Session is the capability handed out on connect. It signs through the bridge
// it was created with and owns the proposal views of the connected wallet.
type Session struct {
	address     string
	connectType ConnectType
	connectedAt time.Time

	bridge Bridge
	views  *reconcile.Views
}

func (s *Session) Address() string {
	return s.address
}

func (s *Session) ConnectType() ConnectType {
	return s.connectType
}

func (s *Session) ConnectedAt() time.Time {
	return s.connectedAt
}

func (s *Session) Post(ctx context.Context, msgs ...any) (*multisig.PostResponse, error) {
	return s.bridge.Post(ctx, msgs...)
}

func (s *Session) Views() *reconcile.Views {
	return s.views
}

// Connector manages the single process wide wallet session
type Connector struct {
	bridges map[ConnectType]Bridge
	r       *reconcile.Reconciler
	prefix  string
	log     *zap.SugaredLogger

	mu      sync.RWMutex
	session *Session
}

func NewConnector(r *reconcile.Reconciler, prefix string, log *zap.SugaredLogger, bridges map[ConnectType]Bridge) *Connector {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Connector{
		bridges: bridges,
		r:       r,
		prefix:  prefix,
		log:     log,
	}
}

// ConnectTypes lists the connect types with a configured bridge
func (c *Connector) ConnectTypes() []ConnectType {
	types := make([]ConnectType, 0, len(c.bridges))
	for t := range c.bridges {
		types = append(types, t)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// Connect opens a session on the first wallet of the bridge for t, replacing any
// previous session
func (c *Connector) Connect(ctx context.Context, t ConnectType) (*Session, error) {
	b, ok := c.bridges[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedConnectType, t)
	}

	wallets, err := b.Wallets(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list wallets: %w", err)
	}

	if len(wallets) == 0 {
		return nil, bridge.ErrNoWallets
	}

	addr, err := common.NormalizeAddress(wallets[0].Address, c.prefix)
	if err != nil {
		return nil, err
	}

	s := &Session{
		address:     addr,
		connectType: t,
		connectedAt: time.Now(),
		bridge:      b,
		views:       reconcile.NewViews(c.r),
	}

	c.mu.Lock()
	old := c.session
	c.session = s
	c.mu.Unlock()

	if old != nil {
		old.views.CloseAll()
	}

	c.log.Infow("wallet connected", "address", common.ShortenAddress(addr, 10), "connect_type", t)

	return s, nil
}

// Disconnect tears the session down, every view it owned stops applying responses
func (c *Connector) Disconnect() {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.mu.Unlock()

	if s == nil {
		return
	}

	s.views.CloseAll()

	c.log.Infow("wallet disconnected", "address", common.ShortenAddress(s.address, 10))
}

// Session returns the current session or ErrNotConnected
func (c *Connector) Session() (*Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.session == nil {
		return nil, multisig.ErrNotConnected
	}

	return c.session, nil
}

func (c *Connector) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.session == nil {
		return StatusNotConnected
	}

	return StatusConnected
}

type contextKey struct{}

// WithSession stores the session in ctx
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored by WithSession
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok && s != nil
}
