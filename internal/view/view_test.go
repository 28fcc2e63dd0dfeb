package view

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/Catorpilor/counter/internal/session"
)

func TestRenderFreshSession(t *testing.T) {
	v := Render(session.Session{})
	want := View{
		Status:         "未连接",
		Address:        "地址: 未连接",
		Balance:        "余额: 0 SOL",
		CounterAddress: "用户的计数器PDA: 未创建",
		CounterValue:   "计数: 0",
		ShowConnect:    true,
	}
	if v != want {
		t.Fatalf("view = %+v\nwant %+v", v, want)
	}
}

func TestRenderButtonsByState(t *testing.T) {
	id := solana.NewWallet().PublicKey()
	pda := solana.NewWallet().PublicKey()
	cases := []struct {
		name                 string
		s                    session.Session
		connect, create, upd bool
	}{
		{"disconnected", session.Session{}, true, false, false},
		{"connected", session.Session{WalletConnected: true, PublicIdentity: id, Phase: session.Connected}, false, true, false},
		{"counter known", session.Session{WalletConnected: true, PublicIdentity: id, CounterAddress: pda, Phase: session.CounterKnown}, false, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := Render(tc.s)
			if v.ShowConnect != tc.connect || v.ShowCreate != tc.create || v.ShowUpdate != tc.upd {
				t.Fatalf("buttons = %v/%v/%v, want %v/%v/%v",
					v.ShowConnect, v.ShowCreate, v.ShowUpdate, tc.connect, tc.create, tc.upd)
			}
		})
	}
}

func TestRenderConnectedFields(t *testing.T) {
	id := solana.NewWallet().PublicKey()
	pda := solana.NewWallet().PublicKey()
	v := Render(session.Session{
		WalletConnected: true,
		PublicIdentity:  id,
		BalanceLamports: 1_500_000_000,
		BalanceKnown:    true,
		CounterAddress:  pda,
		Count:           7,
		CountKnown:      true,
	})
	if v.Status != "已连接 ✅" || v.Address != "地址: "+id.String() {
		t.Fatalf("identity fields = %q %q", v.Status, v.Address)
	}
	if v.Balance != "余额: 1.5000 SOL" {
		t.Fatalf("balance = %q", v.Balance)
	}
	if v.CounterAddress != "计数器地址: "+pda.String() || v.CounterValue != "计数值: 7" {
		t.Fatalf("counter fields = %q %q", v.CounterAddress, v.CounterValue)
	}
}

func TestRenderZeroBalance(t *testing.T) {
	v := Render(session.Session{WalletConnected: true, BalanceKnown: true})
	if v.Balance != "余额: 0.0000 SOL" {
		t.Fatalf("balance = %q", v.Balance)
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Render(session.Session{})); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"未连接", "计数: 0", "[connect] 连接 Phantom 钱包"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "[create]") {
		t.Fatalf("create must be hidden:\n%s", out)
	}
}
