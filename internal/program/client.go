// Package program binds the counter program: it builds the client binding,
// derives the per-user counter address and invokes the program's
// instructions over RPC.
package program

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/Catorpilor/counter/internal/idl"
	"github.com/Catorpilor/counter/internal/wallet"
)

// CounterIDL is the interface description of the deployed counter program.
//
//go:embed counter_idl.json
var CounterIDL []byte

const counterAccount = "Counter"

var (
	ErrInitialization  = errors.New("program initialization failed")
	ErrAccountNotFound = errors.New("account not found")
	ErrNetwork         = errors.New("network error")
)

// RPC is the subset of the network handle the binding needs.
type RPC interface {
	Balance(ctx context.Context, owner solana.PublicKey) (uint64, error)
	AccountData(ctx context.Context, addr solana.PublicKey) ([]byte, error)
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction, maxRetries uint) (solana.Signature, error)
	SignatureStatus(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatusesResult, error)
}

type Options struct {
	PriorityMicrolamports uint64
	ComputeUnitLimit      uint32
	MaxRetries            uint
	ConfirmTimeout        time.Duration
	PollInterval          time.Duration
	PollJitterPct         float64
}

// Client is the program binding: network handle, program id, interface
// description and signer.
type Client struct {
	rpc       RPC
	signer    wallet.Signer
	programID solana.PublicKey
	idl       *idl.IDL
	opts      Options
}

// Init builds a binding. Any failure is reported as ErrInitialization and
// no binding is returned.
func Init(r RPC, signer wallet.Signer, programID string, idlBytes []byte, opts Options) (*Client, error) {
	if r == nil || signer == nil {
		return nil, fmt.Errorf("%w: missing rpc or signer", ErrInitialization)
	}
	pid, err := solana.PublicKeyFromBase58(programID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid program id %q: %v", ErrInitialization, programID, err)
	}
	desc, err := idl.Parse(idlBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInitialization, err)
	}
	if _, err := desc.Account(counterAccount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInitialization, err)
	}
	if opts.ConfirmTimeout == 0 {
		opts.ConfirmTimeout = 30 * time.Second
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = time.Second
	}
	return &Client{rpc: r, signer: signer, programID: pid, idl: desc, opts: opts}, nil
}

func (c *Client) ProgramID() solana.PublicKey { return c.programID }

// Authority is the connected wallet's public key.
func (c *Client) Authority() solana.PublicKey { return c.signer.PublicKey() }

// DeriveCounterAddress returns the counter PDA of authority under programID.
// It is pure: equal inputs give equal outputs.
func DeriveCounterAddress(authority, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{authority[:]}, programID)
}

// CounterAddress derives the counter PDA of authority for this binding.
func (c *Client) CounterAddress(authority solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := DeriveCounterAddress(authority, c.programID)
	return addr, err
}

// Balance returns owner's balance in lamports.
func (c *Client) Balance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	v, err := c.rpc.Balance(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("%w: getBalance: %w", ErrNetwork, err)
	}
	return v, nil
}

// FetchCounter reads the counter value stored at addr. A missing account is
// reported as ErrAccountNotFound, transport failures as ErrNetwork.
func (c *Client) FetchCounter(ctx context.Context, addr solana.PublicKey) (uint64, error) {
	data, err := c.rpc.AccountData(ctx, addr)
	if errors.Is(err, rpc.ErrNotFound) {
		return 0, fmt.Errorf("counter %s: %w", addr, ErrAccountNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: getAccountInfo: %w", ErrNetwork, err)
	}
	fields, err := c.idl.DecodeAccount(counterAccount, data)
	if err != nil {
		return 0, fmt.Errorf("decode counter %s: %w", addr, err)
	}
	count, ok := fields["count"].(uint64)
	if !ok {
		return 0, fmt.Errorf("decode counter %s: count is %T", addr, fields["count"])
	}
	return count, nil
}

// CreateCounter initializes the counter account of authority at counter.
func (c *Client) CreateCounter(ctx context.Context, authority, counter solana.PublicKey) (Result, error) {
	ix, err := c.instruction("create_counter", map[string]solana.PublicKey{
		"authority": authority,
		"counter":   counter,
	})
	if err != nil {
		return Result{}, err
	}
	return c.submit(ctx, "create_counter", ix)
}

// UpdateCounter increments the counter at counter.
func (c *Client) UpdateCounter(ctx context.Context, authority, counter solana.PublicKey) (Result, error) {
	ix, err := c.instruction("update_counter", map[string]solana.PublicKey{
		"authority": authority,
		"counter":   counter,
	})
	if err != nil {
		return Result{}, err
	}
	return c.submit(ctx, "update_counter", ix)
}

// instruction encodes a no-argument instruction, resolving its accounts by
// snake_case name. Fixed accounts come from the description.
func (c *Client) instruction(name string, accounts map[string]solana.PublicKey) (solana.Instruction, error) {
	def, err := c.idl.Instruction(name)
	if err != nil {
		return nil, err
	}
	if len(def.Args) > 0 {
		return nil, fmt.Errorf("instruction %s takes %d args", name, len(def.Args))
	}
	metas := make(solana.AccountMetaSlice, 0, len(def.Accounts))
	for _, a := range def.Accounts {
		key, ok := accounts[idl.SnakeCase(a.Name)]
		switch {
		case ok:
		case a.Address != "":
			if key, err = solana.PublicKeyFromBase58(a.Address); err != nil {
				return nil, fmt.Errorf("instruction %s account %s: %w", name, a.Name, err)
			}
		case idl.SnakeCase(a.Name) == "system_program":
			key = solana.SystemProgramID
		default:
			return nil, fmt.Errorf("instruction %s: no key for account %s", name, a.Name)
		}
		metas = append(metas, &solana.AccountMeta{PublicKey: key, IsSigner: a.Signer, IsWritable: a.Writable})
	}
	data := append([]byte(nil), def.Discriminator...)
	return solana.NewInstruction(c.programID, metas, data), nil
}
