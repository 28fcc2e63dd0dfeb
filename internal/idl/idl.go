// Package idl reads Anchor interface descriptions and decodes the accounts
// they describe.
//
// Both the legacy layout (isMut/isSigner, camelCase names) and the 0.30
// layout (writable/signer, explicit discriminators) are accepted.
package idl

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var ErrUnknown = errors.New("not described by idl")

type IDL struct {
	Version      string        `json:"version"`
	Name         string        `json:"name"`
	Metadata     *Metadata     `json:"metadata,omitempty"`
	Instructions []Instruction `json:"instructions"`
	Accounts     []AccountDef  `json:"accounts"`
	Types        []AccountDef  `json:"types,omitempty"`
}

type Metadata struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

type Instruction struct {
	Name          string       `json:"name"`
	Discriminator []byte       `json:"-"`
	Accounts      []AccountRef `json:"accounts"`
	Args          []Field      `json:"args"`
}

type AccountRef struct {
	Name     string `json:"name"`
	Writable bool   `json:"-"`
	Signer   bool   `json:"-"`
	// Address is a fixed account such as the system program.
	Address string `json:"address,omitempty"`
}

type AccountDef struct {
	Name          string  `json:"name"`
	Discriminator []byte  `json:"-"`
	Type          *Struct `json:"type,omitempty"`
}

type Struct struct {
	Kind   string  `json:"kind"`
	Fields []Field `json:"fields"`
}

type Field struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// Type is a primitive type name; composite types keep their raw form.
type Type struct {
	Name string
	Raw  json.RawMessage
}

func (t *Type) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		t.Name = s
		return nil
	}
	t.Raw = append(json.RawMessage(nil), b...)
	return nil
}

func (i *Instruction) UnmarshalJSON(b []byte) error {
	type plain Instruction
	var aux struct {
		plain
		Discriminator []int `json:"discriminator"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*i = Instruction(aux.plain)
	d, err := toBytes(aux.Discriminator)
	if err != nil {
		return fmt.Errorf("instruction %s: %w", aux.Name, err)
	}
	i.Discriminator = d
	return nil
}

func (a *AccountRef) UnmarshalJSON(b []byte) error {
	type plain AccountRef
	var aux struct {
		plain
		IsMut    bool `json:"isMut"`
		IsSigner bool `json:"isSigner"`
		Writable bool `json:"writable"`
		Signer   bool `json:"signer"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*a = AccountRef(aux.plain)
	a.Writable = aux.IsMut || aux.Writable
	a.Signer = aux.IsSigner || aux.Signer
	return nil
}

func (a *AccountDef) UnmarshalJSON(b []byte) error {
	type plain AccountDef
	var aux struct {
		plain
		Discriminator []int `json:"discriminator"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*a = AccountDef(aux.plain)
	d, err := toBytes(aux.Discriminator)
	if err != nil {
		return fmt.Errorf("account %s: %w", aux.Name, err)
	}
	a.Discriminator = d
	return nil
}

func toBytes(v []int) ([]byte, error) {
	if len(v) == 0 {
		return nil, nil
	}
	if len(v) != 8 {
		return nil, fmt.Errorf("discriminator has %d bytes; want 8", len(v))
	}
	out := make([]byte, len(v))
	for i, n := range v {
		if n < 0 || n > 255 {
			return nil, fmt.Errorf("discriminator byte %d out of range", n)
		}
		out[i] = byte(n)
	}
	return out, nil
}

// Parse decodes and validates an interface description.
func Parse(b []byte) (*IDL, error) {
	var d IDL
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("parse idl: %w", err)
	}
	if d.Name == "" && d.Metadata != nil {
		d.Name = d.Metadata.Name
	}
	if d.Name == "" {
		return nil, errors.New("parse idl: missing name")
	}
	if len(d.Instructions) == 0 {
		return nil, errors.New("parse idl: no instructions")
	}
	for i := range d.Instructions {
		ix := &d.Instructions[i]
		if ix.Discriminator == nil {
			ix.Discriminator = InstructionDiscriminator(ix.Name)
		}
	}
	for i := range d.Accounts {
		acc := &d.Accounts[i]
		if acc.Discriminator == nil {
			acc.Discriminator = AccountDiscriminator(acc.Name)
		}
		if acc.Type == nil {
			// 0.30 layout keeps the struct under types.
			for _, t := range d.Types {
				if t.Name == acc.Name {
					acc.Type = t.Type
				}
			}
		}
		if acc.Type == nil {
			return nil, fmt.Errorf("parse idl: account %s has no type", acc.Name)
		}
		for _, f := range acc.Type.Fields {
			if !supported(f.Type) {
				return nil, fmt.Errorf("parse idl: account %s field %s: unsupported type %s", acc.Name, f.Name, f.Type)
			}
		}
	}
	return &d, nil
}

func (t Type) String() string {
	if t.Name != "" {
		return t.Name
	}
	return string(t.Raw)
}

// Instruction looks an instruction up by its IDL or snake_case name.
func (d *IDL) Instruction(name string) (*Instruction, error) {
	for i := range d.Instructions {
		if d.Instructions[i].Name == name || SnakeCase(d.Instructions[i].Name) == SnakeCase(name) {
			return &d.Instructions[i], nil
		}
	}
	return nil, fmt.Errorf("instruction %s: %w", name, ErrUnknown)
}

func (d *IDL) Account(name string) (*AccountDef, error) {
	for i := range d.Accounts {
		if d.Accounts[i].Name == name {
			return &d.Accounts[i], nil
		}
	}
	return nil, fmt.Errorf("account %s: %w", name, ErrUnknown)
}

// InstructionDiscriminator is sha256("global:<snake_name>")[:8].
func InstructionDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("global:" + SnakeCase(name)))
	return sum[:8]
}

// AccountDiscriminator is sha256("account:<Name>")[:8].
func AccountDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("account:" + name))
	return sum[:8]
}

// SnakeCase turns createCounter into create_counter.
func SnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
