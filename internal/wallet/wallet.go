package wallet

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	cfg "github.com/Catorpilor/counter/internal/config"
)

var (
	ErrWalletUnavailable = errors.New("wallet unavailable")
	ErrUserRejected      = errors.New("user rejected the connection request")
)

// Signer is the capability handed out by a connected wallet.
type Signer interface {
	PublicKey() solana.PublicKey
	SignTransaction(ctx context.Context, tx *solana.Transaction) error
}

// Provider is a wallet that may or may not be present.
type Provider interface {
	// Detect reports whether a usable wallet is present.
	Detect() bool
	Connect(ctx context.Context) (Signer, error)
}

// Unavailable is the provider used when no wallet is configured.
type Unavailable struct{}

func (Unavailable) Detect() bool { return false }

func (Unavailable) Connect(context.Context) (Signer, error) { return nil, ErrWalletUnavailable }

// KeypairProvider holds a local ed25519 keypair.
type KeypairProvider struct {
	key solana.PrivateKey
}

func NewKeypairProvider(key solana.PrivateKey) *KeypairProvider {
	return &KeypairProvider{key: key}
}

func (p *KeypairProvider) Detect() bool { return p != nil && len(p.key) == ed25519.PrivateKeySize }

func (p *KeypairProvider) Connect(ctx context.Context) (Signer, error) {
	if !p.Detect() {
		return nil, ErrWalletUnavailable
	}
	return keySigner{key: p.key}, nil
}

type keySigner struct{ key solana.PrivateKey }

func (s keySigner) PublicKey() solana.PublicKey { return s.key.PublicKey() }

func (s keySigner) SignTransaction(_ context.Context, tx *solana.Transaction) error {
	pub := s.key.PublicKey()
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(pub) {
			return &s.key
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	return nil
}

// FromConfig picks a provider for c. An inline secret key wins over a
// keypair file. Nothing configured, or a keypair file that does not exist,
// yields Unavailable so the failure surfaces at connect time.
func FromConfig(c cfg.WalletConfig) (Provider, error) {
	switch {
	case c.SecretKeyB58 != "":
		key, err := keyFromBase58(c.SecretKeyB58)
		if err != nil {
			return nil, fmt.Errorf("secret_key_b58: %w", err)
		}
		return NewKeypairProvider(key), nil
	case c.KeypairPath != "":
		path, err := resolvePath(c.KeypairPath)
		if err != nil {
			return nil, err
		}
		key, err := keyFromKeygenFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("keypair file not found", "path", path)
			return Unavailable{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("keypair %s: %w", path, err)
		}
		return NewKeypairProvider(key), nil
	}
	return Unavailable{}, nil
}

func keyFromBase58(s string) (solana.PrivateKey, error) {
	raw, err := base58.Decode(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("decode base58: %w", err)
	}
	return checkKeySize(raw)
}

// keyFromKeygenFile reads the JSON byte array written by solana-keygen.
func keyFromKeygenFile(path string) (solana.PrivateKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []uint8
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse keypair file: %w", err)
	}
	return checkKeySize(raw)
}

func checkKeySize(raw []byte) (solana.PrivateKey, error) {
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("key has %d bytes; want %d", len(raw), ed25519.PrivateKeySize)
	}
	return solana.PrivateKey(raw), nil
}

// resolvePath expands env vars and a leading ~ in a keypair path.
func resolvePath(p string) (string, error) {
	p = os.ExpandEnv(p)
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", p, err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
