package wallet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Prompter asks the user to approve a connection for the given identity.
type Prompter interface {
	Approve(ctx context.Context, identity string) (bool, error)
}

type approving struct {
	Provider
	prompt Prompter
}

// Approving wraps p so that every Connect asks prompt first. A declined
// prompt yields ErrUserRejected.
func Approving(p Provider, prompt Prompter) Provider {
	return &approving{Provider: p, prompt: prompt}
}

func (a *approving) Connect(ctx context.Context) (Signer, error) {
	if !a.Detect() {
		return nil, ErrWalletUnavailable
	}
	s, err := a.Provider.Connect(ctx)
	if err != nil {
		return nil, err
	}
	ok, err := a.prompt.Approve(ctx, s.PublicKey().String())
	if err != nil {
		return nil, fmt.Errorf("approval prompt: %w", err)
	}
	if !ok {
		return nil, ErrUserRejected
	}
	return s, nil
}

// LineReader yields one line of user input at a time.
type LineReader interface {
	ReadLine(ctx context.Context) (string, error)
}

// LinePrompt asks on out and reads a y/n answer from in.
type LinePrompt struct {
	in  LineReader
	out io.Writer
}

func NewLinePrompt(in LineReader, out io.Writer) *LinePrompt {
	return &LinePrompt{in: in, out: out}
}

func (p *LinePrompt) Approve(ctx context.Context, identity string) (bool, error) {
	fmt.Fprintf(p.out, "连接钱包 %s? [y/N] ", identity)
	line, err := p.in.ReadLine(ctx)
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// AutoApprove accepts every request.
type AutoApprove struct{}

func (AutoApprove) Approve(context.Context, string) (bool, error) { return true, nil }
