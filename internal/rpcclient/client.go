package rpcclient

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/time/rate"

	cfg "github.com/Catorpilor/counter/internal/config"
	"github.com/Catorpilor/counter/internal/metrics"
)

// Client is the network handle: one endpoint, one commitment level.
type Client struct {
	RPC        *rpc.Client
	Endpoint   string
	Commitment rpc.CommitmentType

	timeout time.Duration
	limiter *rate.Limiter
	metrics *metrics.RPC
}

// Endpoint resolves a cluster name the way web3's clusterApiUrl does.
func Endpoint(cluster string) (string, error) {
	switch cluster {
	case "devnet":
		return rpc.DevNet_RPC, nil
	case "testnet":
		return rpc.TestNet_RPC, nil
	case "mainnet-beta", "mainnet":
		return rpc.MainNetBeta_RPC, nil
	case "localnet", "localhost":
		return rpc.LocalNet_RPC, nil
	}
	return "", fmt.Errorf("unknown cluster %q", cluster)
}

func New(c cfg.RPCConfig, m *metrics.RPC) (*Client, error) {
	url := c.URL
	if url == "" {
		var err error
		if url, err = Endpoint(c.Cluster); err != nil {
			return nil, err
		}
	}
	cl := &Client{
		RPC:        rpc.New(url),
		Endpoint:   url,
		Commitment: rpc.CommitmentType(c.Commitment),
		timeout:    c.Timeout,
		metrics:    m,
	}
	if cl.Commitment == "" {
		cl.Commitment = rpc.CommitmentConfirmed
	}
	if c.RPS > 0 {
		cl.limiter = rate.NewLimiter(rate.Limit(c.RPS), c.Burst)
	}
	return cl, nil
}

// call throttles, bounds and records one round trip.
func (c *Client) call(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: %w", method, err)
		}
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	start := time.Now()
	err := fn(ctx)
	c.metrics.Observe(method, start, err)
	return err
}

// Balance returns the lamports held by owner.
func (c *Client) Balance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	var out uint64
	err := c.call(ctx, "getBalance", func(ctx context.Context) error {
		res, err := c.RPC.GetBalance(ctx, owner, c.Commitment)
		if err != nil {
			return err
		}
		out = res.Value
		return nil
	})
	return out, err
}

// AccountData returns the raw data of an account. A missing account yields
// rpc.ErrNotFound.
func (c *Client) AccountData(ctx context.Context, addr solana.PublicKey) ([]byte, error) {
	var out []byte
	err := c.call(ctx, "getAccountInfo", func(ctx context.Context) error {
		res, err := c.RPC.GetAccountInfoWithOpts(ctx, addr, &rpc.GetAccountInfoOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: c.Commitment,
		})
		if err != nil {
			return err
		}
		if res == nil || res.Value == nil || res.Value.Lamports == 0 {
			return rpc.ErrNotFound
		}
		out = res.GetBinary()
		return nil
	})
	return out, err
}

func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	var out solana.Hash
	err := c.call(ctx, "getLatestBlockhash", func(ctx context.Context) error {
		res, err := c.RPC.GetLatestBlockhash(ctx, c.Commitment)
		if err != nil {
			return err
		}
		out = res.Value.Blockhash
		return nil
	})
	return out, err
}

// SendTransaction submits a signed transaction with preflight at the
// client's commitment.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction, maxRetries uint) (solana.Signature, error) {
	var sig solana.Signature
	err := c.call(ctx, "sendTransaction", func(ctx context.Context) error {
		var err error
		sig, err = c.RPC.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			SkipPreflight:       false,
			PreflightCommitment: c.Commitment,
			MaxRetries:          &maxRetries,
		})
		return err
	})
	return sig, err
}

// SignatureStatus returns nil while the cluster has not seen sig yet.
func (c *Client) SignatureStatus(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatusesResult, error) {
	var out *rpc.SignatureStatusesResult
	err := c.call(ctx, "getSignatureStatuses", func(ctx context.Context) error {
		res, err := c.RPC.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			return err
		}
		if res != nil && len(res.Value) > 0 {
			out = res.Value[0]
		}
		return nil
	})
	return out, err
}
