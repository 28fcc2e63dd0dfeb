package program

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"github.com/Catorpilor/counter/internal/schedule"
)

// Result is the outcome of a submitted transaction.
type Result struct {
	Signature solana.Signature
	// Pending is set when the transaction was accepted but not seen at the
	// requested commitment before the confirm timeout.
	Pending bool
}

func (r Result) String() string {
	if r.Pending {
		return fmt.Sprintf("submitted (pending): %s", r.Signature)
	}
	return fmt.Sprintf("submitted: %s", r.Signature)
}

// RemoteError is an error reported by the node or the program, kept verbatim.
type RemoteError struct {
	Op      string
	Code    int
	Message string
	// Logs are the program logs from a failed preflight simulation.
	Logs []string
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Message)
	if e.Code != 0 {
		msg = fmt.Sprintf("%s (code %d)", msg, e.Code)
	}
	if len(e.Logs) > 0 {
		msg += "\nlogs:\n" + strings.Join(e.Logs, "\n")
	}
	return msg
}

// submit signs ix with the wallet, sends it and waits for confirmation.
func (c *Client) submit(ctx context.Context, op string, ix solana.Instruction) (Result, error) {
	blockhash, err := c.rpc.LatestBlockhash(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("%w: getLatestBlockhash: %w", ErrNetwork, err)
	}

	var ixs []solana.Instruction
	if c.opts.ComputeUnitLimit > 0 {
		ixs = append(ixs, computebudget.NewSetComputeUnitLimitInstruction(c.opts.ComputeUnitLimit).Build())
	}
	if c.opts.PriorityMicrolamports > 0 {
		ixs = append(ixs, computebudget.NewSetComputeUnitPriceInstruction(c.opts.PriorityMicrolamports).Build())
	}
	ixs = append(ixs, ix)

	payer := c.signer.PublicKey()
	tx, err := solana.NewTransaction(ixs, blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return Result{}, fmt.Errorf("new tx: %w", err)
	}
	if err := c.signer.SignTransaction(ctx, tx); err != nil {
		return Result{}, err
	}

	sig, err := c.rpc.SendTransaction(ctx, tx, c.opts.MaxRetries)
	if err != nil {
		return Result{}, classify(op, err)
	}
	slog.Info("transaction sent", "op", op, "signature", sig.String())
	return c.confirm(ctx, op, sig)
}

// confirm polls the signature status until the transaction reaches
// confirmed or finalized, fails, or the confirm timeout passes.
func (c *Client) confirm(ctx context.Context, op string, sig solana.Signature) (Result, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.opts.ConfirmTimeout)
	defer cancel()
	sched := schedule.New(waitCtx, c.opts.PollInterval, c.opts.PollJitterPct)
	for {
		st, err := c.rpc.SignatureStatus(waitCtx, sig)
		switch {
		case err != nil:
			slog.Debug("signature status", "op", op, "signature", sig.String(), "err", err)
		case st == nil:
		case st.Err != nil:
			return Result{Signature: sig}, &RemoteError{Op: op, Message: fmt.Sprint(st.Err)}
		case st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed,
			st.ConfirmationStatus == rpc.ConfirmationStatusFinalized:
			return Result{Signature: sig}, nil
		}
		select {
		case <-waitCtx.Done():
			// The transaction is already out; an expired caller deadline
			// leaves it pending rather than failed.
			slog.Warn("transaction not confirmed", "op", op, "signature", sig.String(), "err", waitCtx.Err())
			return Result{Signature: sig, Pending: true}, nil
		case <-sched.Next():
		}
	}
}

// classify separates node/program rejections from transport failures.
func classify(op string, err error) error {
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		return &RemoteError{Op: op, Code: rpcErr.Code, Message: rpcErr.Message, Logs: simulationLogs(rpcErr.Data)}
	}
	return fmt.Errorf("%w: %s: %w", ErrNetwork, op, err)
}

// simulationLogs pulls data.logs out of a sendTransaction preflight error.
func simulationLogs(data interface{}) []string {
	m, ok := data.(map[string]interface{})
	if !ok {
		return nil
	}
	raw, _ := m["logs"].([]interface{})
	logs := make([]string, 0, len(raw))
	for _, l := range raw {
		if s, ok := l.(string); ok {
			logs = append(logs, s)
		}
	}
	return logs
}
