package session

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"

	"github.com/Catorpilor/counter/internal/program"
	"github.com/Catorpilor/counter/internal/wallet"
)

var (
	ErrNotConnected    = errors.New("wallet not connected")
	ErrCounterNotFound = errors.New("no counter created yet")
	ErrBusy            = errors.New("another action is in flight")
	ErrUnknownAction   = errors.New("unknown action")
)

// Phase only moves forward; a new session starts over at Disconnected.
type Phase int

const (
	Disconnected Phase = iota
	Connected
	CounterKnown
	CounterCreated
)

func (p Phase) String() string {
	switch p {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case CounterKnown:
		return "counter_known"
	case CounterCreated:
		return "counter_created"
	}
	return "unknown"
}

// Binding is the program binding the controller drives. *program.Client
// implements it.
type Binding interface {
	ProgramID() solana.PublicKey
	Balance(ctx context.Context, owner solana.PublicKey) (uint64, error)
	FetchCounter(ctx context.Context, addr solana.PublicKey) (uint64, error)
	CreateCounter(ctx context.Context, authority, counter solana.PublicKey) (program.Result, error)
	UpdateCounter(ctx context.Context, authority, counter solana.PublicKey) (program.Result, error)
}

// Initializer builds a binding for a connected signer.
type Initializer func(signer wallet.Signer) (Binding, error)

// Session is the state of one run. Zero public keys mean "not set".
type Session struct {
	Phase           Phase
	WalletConnected bool
	PublicIdentity  solana.PublicKey
	Binding         Binding
	// CounterAddress is set once the counter is known to exist or was created.
	CounterAddress solana.PublicKey
	// ExpectedAddress is the derived counter address before creation.
	ExpectedAddress solana.PublicKey

	BalanceLamports uint64
	BalanceKnown    bool
	Count           uint64
	CountKnown      bool
}

func (s Session) HasCounter() bool { return !s.CounterAddress.IsZero() }

// advance moves to p unless the session is already past it.
func (s *Session) advance(p Phase) {
	if p > s.Phase {
		s.Phase = p
	}
}
