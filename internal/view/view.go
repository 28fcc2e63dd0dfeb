// Package view maps session state onto the text the user sees.
package view

import (
	"fmt"
	"io"
	"strings"

	"github.com/Catorpilor/counter/internal/session"
)

const lamportsPerSOL = 1e9

// View is what the screen shows. Buttons lists the actions the user can
// take right now.
type View struct {
	Status         string
	Address        string
	Balance        string
	CounterAddress string
	CounterValue   string

	ShowConnect bool
	ShowCreate  bool
	ShowUpdate  bool
}

// Render is a pure function of s.
func Render(s session.Session) View {
	v := View{
		Status:         "未连接",
		Address:        "地址: 未连接",
		Balance:        "余额: 0 SOL",
		CounterAddress: "用户的计数器PDA: 未创建",
		CounterValue:   "计数: 0",
	}
	if s.WalletConnected {
		v.Status = "已连接 ✅"
		v.Address = "地址: " + s.PublicIdentity.String()
	}
	if s.BalanceKnown {
		v.Balance = fmt.Sprintf("余额: %.4f SOL", float64(s.BalanceLamports)/lamportsPerSOL)
	}
	if s.HasCounter() {
		v.CounterAddress = "计数器地址: " + s.CounterAddress.String()
	}
	if s.CountKnown {
		v.CounterValue = fmt.Sprintf("计数值: %d", s.Count)
	}

	v.ShowConnect = !s.WalletConnected
	v.ShowCreate = s.WalletConnected && !s.HasCounter()
	v.ShowUpdate = s.HasCounter()
	return v
}

// Actions lists the visible buttons as action names.
func (v View) Actions() []session.Action {
	var out []session.Action
	if v.ShowConnect {
		out = append(out, session.ActionConnect)
	}
	if v.ShowCreate {
		out = append(out, session.ActionCreate)
	}
	if v.ShowUpdate {
		out = append(out, session.ActionIncrement, session.ActionRefresh)
	}
	return out
}

var labels = map[session.Action]string{
	session.ActionConnect:   "连接 Phantom 钱包",
	session.ActionCreate:    "创建计数器",
	session.ActionIncrement: "+1 计数器",
	session.ActionRefresh:   "刷新",
}

// Write prints v as plain text.
func Write(w io.Writer, v View) error {
	var b strings.Builder
	for _, line := range []string{v.Status, v.Address, v.Balance, v.CounterAddress, v.CounterValue} {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	for _, a := range v.Actions() {
		fmt.Fprintf(&b, "  [%s] %s\n", a, labels[a])
	}
	_, err := io.WriteString(w, b.String())
	return err
}
