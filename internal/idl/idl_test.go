package idl

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"
)

const legacy = `{
  "version": "0.1.0",
  "name": "counter",
  "instructions": [
    {"name": "createCounter", "accounts": [
      {"name": "authority", "isMut": true, "isSigner": true},
      {"name": "counter", "isMut": true, "isSigner": false},
      {"name": "systemProgram", "isMut": false, "isSigner": false}
    ], "args": []}
  ],
  "accounts": [
    {"name": "Counter", "type": {"kind": "struct", "fields": [
      {"name": "count", "type": "u64"},
      {"name": "owner", "type": "publicKey"},
      {"name": "label", "type": "string"},
      {"name": "delta", "type": "i128"}
    ]}}
  ]
}`

const modern = `{
  "address": "3PmKxGK4Dq8rcsdbr4cCK2RA1ND8UZohPZQrt3ofuEQh",
  "metadata": {"name": "counter", "version": "0.1.0"},
  "instructions": [
    {"name": "update_counter", "discriminator": [1,2,3,4,5,6,7,8], "accounts": [
      {"name": "authority", "signer": true},
      {"name": "counter", "writable": true}
    ], "args": []}
  ],
  "accounts": [{"name": "Counter", "discriminator": [9,9,9,9,9,9,9,9]}],
  "types": [{"name": "Counter", "type": {"kind": "struct", "fields": [{"name": "count", "type": "u64"}]}}]
}`

func TestSnakeCase(t *testing.T) {
	cases := map[string]string{
		"createCounter":  "create_counter",
		"update_counter": "update_counter",
		"x":              "x",
	}
	for in, want := range cases {
		if got := SnakeCase(in); got != want {
			t.Errorf("SnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseLegacy(t *testing.T) {
	d, err := Parse([]byte(legacy))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ix, err := d.Instruction("create_counter")
	if err != nil {
		t.Fatalf("instruction: %v", err)
	}
	if !bytes.Equal(ix.Discriminator, InstructionDiscriminator("createCounter")) {
		t.Fatalf("discriminator = %x", ix.Discriminator)
	}
	if a := ix.Accounts[0]; !a.Writable || !a.Signer {
		t.Fatalf("authority flags = %+v", a)
	}
	if a := ix.Accounts[2]; a.Writable || a.Signer {
		t.Fatalf("system program flags = %+v", a)
	}
}

func TestParseModern(t *testing.T) {
	d, err := Parse([]byte(modern))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Name != "counter" {
		t.Fatalf("name = %q", d.Name)
	}
	ix, err := d.Instruction("updateCounter")
	if err != nil {
		t.Fatalf("instruction: %v", err)
	}
	if !bytes.Equal(ix.Discriminator, []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Fatalf("discriminator = %v", ix.Discriminator)
	}
	if !ix.Accounts[0].Signer || ix.Accounts[0].Writable || !ix.Accounts[1].Writable {
		t.Fatalf("accounts = %+v", ix.Accounts)
	}
	acc, err := d.Account("Counter")
	if err != nil || acc.Type == nil || len(acc.Type.Fields) != 1 {
		t.Fatalf("account = %+v, %v", acc, err)
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"not json":         `{`,
		"no name":          `{"instructions":[{"name":"a","accounts":[],"args":[]}]}`,
		"no instructions":  `{"name":"c","instructions":[]}`,
		"short disc":       `{"name":"c","instructions":[{"name":"a","discriminator":[1],"accounts":[],"args":[]}]}`,
		"unsupported type": `{"name":"c","instructions":[{"name":"a","accounts":[],"args":[]}],"accounts":[{"name":"A","type":{"kind":"struct","fields":[{"name":"v","type":{"vec":"u8"}}]}}]}`,
	}
	for name, body := range cases {
		if _, err := Parse([]byte(body)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestDecodeAccount(t *testing.T) {
	d, err := Parse([]byte(legacy))
	if err != nil {
		t.Fatal(err)
	}
	owner := solana.NewWallet().PublicKey()
	data := append([]byte(nil), AccountDiscriminator("Counter")...)
	data = binary.LittleEndian.AppendUint64(data, 42)
	data = append(data, owner[:]...)
	data = binary.LittleEndian.AppendUint32(data, 2)
	data = append(data, "hi"...)
	neg := bytes.Repeat([]byte{0xff}, 16) // -1
	data = append(data, neg...)

	got, err := d.DecodeAccount("Counter", data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["count"] != uint64(42) {
		t.Fatalf("count = %v", got["count"])
	}
	if got["owner"] != owner {
		t.Fatalf("owner = %v", got["owner"])
	}
	if got["label"] != "hi" {
		t.Fatalf("label = %v", got["label"])
	}
	if v := got["delta"].(*big.Int); v.Cmp(big.NewInt(-1)) != 0 {
		t.Fatalf("delta = %v", v)
	}
}

func TestDecodeAccountRejectsWrongDiscriminator(t *testing.T) {
	d, err := Parse([]byte(legacy))
	if err != nil {
		t.Fatal(err)
	}
	data := make([]byte, 16)
	if _, err := d.DecodeAccount("Counter", data); !errors.Is(err, ErrDiscriminator) {
		t.Fatalf("err = %v, want ErrDiscriminator", err)
	}
	if _, err := d.DecodeAccount("Missing", data); !errors.Is(err, ErrUnknown) {
		t.Fatalf("err = %v, want ErrUnknown", err)
	}
}
