package idl

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var ErrDiscriminator = errors.New("account discriminator mismatch")

func supported(t Type) bool {
	switch t.Name {
	case "bool", "u8", "i8", "u16", "i16", "u32", "i32", "u64", "i64",
		"u128", "i128", "publicKey", "pubkey", "string":
		return true
	}
	return false
}

// DecodeAccount decodes raw account data of the named account type into a
// field map. Integers up to 64 bits decode to their Go type, 128-bit ones to
// *big.Int, keys to solana.PublicKey.
func (d *IDL) DecodeAccount(name string, data []byte) (map[string]any, error) {
	def, err := d.Account(name)
	if err != nil {
		return nil, err
	}
	if len(data) < 8 || !bytes.Equal(data[:8], def.Discriminator) {
		return nil, fmt.Errorf("%s: %w", name, ErrDiscriminator)
	}
	dec := bin.NewBorshDecoder(data[8:])
	out := make(map[string]any, len(def.Type.Fields))
	for _, f := range def.Type.Fields {
		v, err := readField(dec, f.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", name, f.Name, err)
		}
		out[f.Name] = v
	}
	return out, nil
}

func readField(dec *bin.Decoder, t Type) (any, error) {
	switch t.Name {
	case "bool":
		return dec.ReadBool()
	case "u8":
		return dec.ReadUint8()
	case "i8":
		return dec.ReadInt8()
	case "u16":
		return dec.ReadUint16(binary.LittleEndian)
	case "i16":
		return dec.ReadInt16(binary.LittleEndian)
	case "u32":
		return dec.ReadUint32(binary.LittleEndian)
	case "i32":
		return dec.ReadInt32(binary.LittleEndian)
	case "u64":
		return dec.ReadUint64(binary.LittleEndian)
	case "i64":
		return dec.ReadInt64(binary.LittleEndian)
	case "u128", "i128":
		b, err := dec.ReadNBytes(16)
		if err != nil {
			return nil, err
		}
		return leInt(b, t.Name == "i128"), nil
	case "publicKey", "pubkey":
		b, err := dec.ReadNBytes(32)
		if err != nil {
			return nil, err
		}
		return solana.PublicKeyFromBytes(b), nil
	case "string":
		n, err := dec.ReadUint32(binary.LittleEndian)
		if err != nil {
			return nil, err
		}
		b, err := dec.ReadNBytes(int(n))
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
	return nil, fmt.Errorf("unsupported type %s", t)
}

func leInt(b []byte, signed bool) *big.Int {
	be := make([]byte, len(b))
	for i := range b {
		be[len(b)-1-i] = b[i]
	}
	v := new(big.Int).SetBytes(be)
	if signed && b[len(b)-1]&0x80 != 0 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), uint(8*len(b))))
	}
	return v
}
