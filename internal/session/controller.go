package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/Catorpilor/counter/internal/program"
	"github.com/Catorpilor/counter/internal/wallet"
)

// User-facing alert texts.
const (
	MsgInstallWallet = "请安装 Phantom 钱包"
	MsgConnectFirst  = "请先连接钱包"
	MsgCreateFirst   = "请先创建计数器"

	CtxConnect = "钱包连接失败"
	CtxCreate  = "创建计数器失败"
	CtxUpdate  = "更新计数器失败"
)

// Alerter shows a blocking message to the user.
type Alerter interface {
	Alert(msg string)
}

type AlertFunc func(msg string)

func (f AlertFunc) Alert(msg string) { f(msg) }

type Action string

const (
	ActionConnect   Action = "connect"
	ActionCreate    Action = "create"
	ActionIncrement Action = "increment"
	ActionRefresh   Action = "refresh"
	// ActionShow makes no remote call; the caller re-renders afterwards.
	ActionShow Action = "show"
)

// ParseAction maps user input, including aliases, to an action.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "connect", "c":
		return ActionConnect, nil
	case "create", "new":
		return ActionCreate, nil
	case "increment", "update", "inc", "+1", "+":
		return ActionIncrement, nil
	case "refresh", "fetch", "r":
		return ActionRefresh, nil
	case "show", "s", "ls":
		return ActionShow, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Controller owns the session and runs one action at a time.
type Controller struct {
	wallet  wallet.Provider
	init    Initializer
	alert   Alerter
	timeout time.Duration
	log     *slog.Logger

	mu       sync.Mutex
	busy     bool
	s        Session
	handlers map[Action]func(context.Context) error
}

type Option func(*Controller)

// WithTimeout bounds every action, network round trips included.
func WithTimeout(d time.Duration) Option { return func(c *Controller) { c.timeout = d } }

func WithLogger(l *slog.Logger) Option { return func(c *Controller) { c.log = l } }

func NewController(w wallet.Provider, newBinding Initializer, alert Alerter, opts ...Option) *Controller {
	c := &Controller{wallet: w, init: newBinding, alert: alert, log: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	c.handlers = map[Action]func(context.Context) error{
		ActionConnect:   c.connect,
		ActionCreate:    c.create,
		ActionIncrement: c.increment,
		ActionRefresh:   c.refresh,
		ActionShow:      c.show,
	}
	return c
}

// Snapshot returns a copy of the current session.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}

// Dispatch runs the handler for a. Failures have already been alerted and
// logged when Dispatch returns them.
func (c *Controller) Dispatch(ctx context.Context, a Action) error {
	h, ok := c.handlers[a]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, a)
	}
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	c.busy = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	c.log.Debug("action", "action", string(a))
	return h(ctx)
}

func (c *Controller) update(fn func(*Session)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.s)
}

// fail logs err and alerts "<context>: <message>".
func (c *Controller) fail(what string, err error) error {
	c.log.Error(what, "err", err)
	c.alert.Alert(fmt.Sprintf("%s: %s", what, err.Error()))
	return err
}

func (c *Controller) connect(ctx context.Context) error {
	if !c.wallet.Detect() {
		c.alert.Alert(MsgInstallWallet)
		return wallet.ErrWalletUnavailable
	}
	signer, err := c.wallet.Connect(ctx)
	if errors.Is(err, wallet.ErrWalletUnavailable) {
		c.alert.Alert(MsgInstallWallet)
		return err
	}
	if err != nil {
		return c.fail(CtxConnect, err)
	}
	binding, err := c.init(signer)
	if err != nil {
		return c.fail(CtxConnect, err)
	}

	identity := signer.PublicKey()
	// A connect starts a fresh session; the previous binding is dropped.
	c.update(func(s *Session) {
		*s = Session{
			Phase:           Connected,
			WalletConnected: true,
			PublicIdentity:  identity,
			Binding:         binding,
		}
	})
	c.log.Info("wallet connected", "address", identity.String())

	if lamports, err := binding.Balance(ctx, identity); err != nil {
		c.log.Warn("balance unavailable", "address", identity.String(), "err", err)
	} else {
		c.update(func(s *Session) { s.BalanceLamports, s.BalanceKnown = lamports, true })
	}
	return c.autoDetect(ctx, binding, identity)
}

// autoDetect derives the counter address and adopts it when the account
// already exists.
func (c *Controller) autoDetect(ctx context.Context, b Binding, identity solana.PublicKey) error {
	addr, _, err := program.DeriveCounterAddress(identity, b.ProgramID())
	if err != nil {
		return c.fail(CtxConnect, err)
	}
	count, err := b.FetchCounter(ctx, addr)
	switch {
	case err == nil:
		c.update(func(s *Session) {
			s.ExpectedAddress, s.CounterAddress = addr, addr
			s.Count, s.CountKnown = count, true
			s.advance(CounterKnown)
		})
	case errors.Is(err, program.ErrAccountNotFound):
		c.log.Debug("no counter yet", "counter", addr.String())
		c.update(func(s *Session) {
			s.ExpectedAddress = addr
			s.Count, s.CountKnown = 0, true
		})
	default:
		// Existence is unknown; treat the counter as present like a
		// successful lookup would, but show zero.
		c.log.Warn("counter lookup failed", "counter", addr.String(), "err", err)
		c.update(func(s *Session) {
			s.ExpectedAddress, s.CounterAddress = addr, addr
			s.Count, s.CountKnown = 0, true
			s.advance(CounterKnown)
		})
	}
	return nil
}

func (c *Controller) create(ctx context.Context) error {
	s := c.Snapshot()
	if !s.WalletConnected || s.Binding == nil {
		c.alert.Alert(MsgConnectFirst)
		return ErrNotConnected
	}
	addr, _, err := program.DeriveCounterAddress(s.PublicIdentity, s.Binding.ProgramID())
	if err != nil {
		return c.fail(CtxCreate, err)
	}
	res, err := s.Binding.CreateCounter(ctx, s.PublicIdentity, addr)
	if err != nil {
		return c.fail(CtxCreate, err)
	}
	c.log.Info("counter created", "counter", addr.String(), "result", res.String())
	c.update(func(s *Session) {
		s.ExpectedAddress, s.CounterAddress = addr, addr
		s.advance(CounterCreated)
	})
	c.fetch(ctx)
	return nil
}

func (c *Controller) increment(ctx context.Context) error {
	s := c.Snapshot()
	if !s.HasCounter() || s.Binding == nil {
		c.alert.Alert(MsgCreateFirst)
		return ErrCounterNotFound
	}
	res, err := s.Binding.UpdateCounter(ctx, s.PublicIdentity, s.CounterAddress)
	if err != nil {
		return c.fail(CtxUpdate, err)
	}
	c.log.Info("counter updated", "counter", s.CounterAddress.String(), "result", res.String())
	c.fetch(ctx)
	return nil
}

func (c *Controller) refresh(ctx context.Context) error {
	s := c.Snapshot()
	if !s.HasCounter() || s.Binding == nil {
		c.alert.Alert(MsgCreateFirst)
		return ErrCounterNotFound
	}
	c.fetch(ctx)
	return nil
}

func (c *Controller) show(context.Context) error { return nil }

// fetch reads the counter value; any failure shows zero instead of
// alerting.
func (c *Controller) fetch(ctx context.Context) {
	s := c.Snapshot()
	count, err := s.Binding.FetchCounter(ctx, s.CounterAddress)
	switch {
	case err == nil:
	case errors.Is(err, program.ErrAccountNotFound):
		c.log.Debug("counter not found", "counter", s.CounterAddress.String())
		count = 0
	default:
		c.log.Warn("counter fetch failed", "counter", s.CounterAddress.String(), "err", err)
		count = 0
	}
	c.update(func(s *Session) { s.Count, s.CountKnown = count, true })
}
