package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"

	cfg "github.com/Catorpilor/counter/internal/config"
	"github.com/Catorpilor/counter/internal/console"
)

func TestFromConfigNothingConfigured(t *testing.T) {
	p, err := FromConfig(cfg.WalletConfig{})
	if err != nil {
		t.Fatalf("from config: %v", err)
	}
	if p.Detect() {
		t.Fatal("expected no wallet detected")
	}
	if _, err := p.Connect(context.Background()); !errors.Is(err, ErrWalletUnavailable) {
		t.Fatalf("err = %v, want ErrWalletUnavailable", err)
	}
}

func TestFromConfigMissingKeypairFile(t *testing.T) {
	p, err := FromConfig(cfg.WalletConfig{KeypairPath: filepath.Join(t.TempDir(), "missing.json")})
	if err != nil {
		t.Fatalf("from config: %v", err)
	}
	if p.Detect() {
		t.Fatal("expected no wallet detected")
	}
}

func TestFromConfigBase58(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	p, err := FromConfig(cfg.WalletConfig{SecretKeyB58: key.String()})
	if err != nil {
		t.Fatalf("from config: %v", err)
	}
	s, err := p.Connect(context.Background())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if !s.PublicKey().Equals(key.PublicKey()) {
		t.Fatal("public key mismatch")
	}
	if _, err := FromConfig(cfg.WalletConfig{SecretKeyB58: "3mJr7AoUXx2Wqd"}); err == nil {
		t.Fatal("expected error for short key")
	}
}

func TestResolvePath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	t.Setenv("COUNTER_KEY_DIR", "/tmp/keys")
	cases := map[string]string{
		"~":                        home,
		"~/.config/solana/id.json": filepath.Join(home, ".config/solana/id.json"),
		"$COUNTER_KEY_DIR/id.json": "/tmp/keys/id.json",
		"/abs/id.json":             "/abs/id.json",
		"~other/id.json":           "~other/id.json",
	}
	for in, want := range cases {
		got, err := resolvePath(in)
		if err != nil {
			t.Fatalf("resolve %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("resolve %q = %q, want %q", in, got, want)
		}
	}
}

func TestLoadKeypairFile(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	raw := make([]int, len(key))
	for i, b := range key {
		raw[i] = int(b)
	}
	body, err := json.Marshal(raw)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "id.json")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}
	p, err := FromConfig(cfg.WalletConfig{KeypairPath: path})
	if err != nil {
		t.Fatalf("from config: %v", err)
	}
	s, err := p.Connect(context.Background())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if !s.PublicKey().Equals(key.PublicKey()) {
		t.Fatal("public key mismatch")
	}
}

func TestSignTransaction(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	s, err := NewKeypairProvider(key).Connect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	ix := solana.NewInstruction(solana.SystemProgramID, solana.AccountMetaSlice{
		{PublicKey: key.PublicKey(), IsSigner: true, IsWritable: true},
	}, []byte{1})
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{1}, solana.TransactionPayer(key.PublicKey()))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SignTransaction(context.Background(), tx); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := tx.VerifySignatures(); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestApproving(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	cases := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"yes", "y\n", nil},
		{"no", "n\n", ErrUserRejected},
		{"empty", "\n", ErrUserRejected},
		{"eof", "", ErrUserRejected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prompt := NewLinePrompt(console.NewReader(strings.NewReader(tc.input)), io.Discard)
			p := Approving(NewKeypairProvider(key), prompt)
			_, err := p.Connect(context.Background())
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestApprovingUnavailableSkipsPrompt(t *testing.T) {
	p := Approving(Unavailable{}, promptFunc(func() bool {
		t.Fatal("prompt must not run without a wallet")
		return false
	}))
	if _, err := p.Connect(context.Background()); !errors.Is(err, ErrWalletUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

type promptFunc func() bool

func (f promptFunc) Approve(context.Context, string) (bool, error) { return f(), nil }

func TestApprovingAutoApprove(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	s, err := Approving(NewKeypairProvider(key), AutoApprove{}).Connect(context.Background())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if !s.PublicKey().Equals(key.PublicKey()) {
		t.Fatal("public key mismatch")
	}
}
