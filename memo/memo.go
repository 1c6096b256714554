// Package memo implements the binary instruction format carried on the memo
// field of source ledger payments. The operator decodes the memo to learn
// what it has to replay on the destination chain, so encoding has to be
// deterministic and exactly reversible.
package memo

import (
	"errors"
	"fmt"
	"math/big"
)

const (
	// Length is the exact size in bytes of an encoded memo.
	Length = 31
	// amountLength is the size of the big-endian amount payload (all memo
	// bytes after the opcode).
	amountLength = Length - 1
)

// Kind identifies the bridge instruction carried by a memo.
type Kind uint8

const (
	// KindDeposit moves value from the source ledger into the destination chain.
	KindDeposit Kind = 1
	// KindWithdraw moves value from the destination chain back to the source ledger.
	KindWithdraw Kind = 2
)

var (
	// ErrAmountTooLarge is returned when the amount doesn't fit the memo payload.
	ErrAmountTooLarge = errors.New("amount exceeds memo capacity")
	// ErrInvalidAmount is returned when the amount is nil or negative.
	ErrInvalidAmount = errors.New("amount must be a non-negative integer")
	// ErrInvalidLength is returned when decoding a memo of the wrong size.
	ErrInvalidLength = errors.New("memo must be exactly 31 bytes")
	// ErrUnknownOpcode is returned when decoding a memo with an unknown opcode.
	ErrUnknownOpcode = errors.New("unknown memo opcode")

	// maxAmount is 2^(8*amountLength), first value that overflows the payload.
	maxAmount = new(big.Int).Lsh(big.NewInt(1), amountLength*8)
)

// Instruction is a bridge order: what to do and for how much.
type Instruction struct {
	Kind   Kind
	Amount *big.Int
}

func (i Instruction) String() string {
	return fmt.Sprintf("%s(%s)", i.Kind, i.Amount)
}

func (k Kind) String() string {
	switch k {
	case KindDeposit:
		return "deposit"
	case KindWithdraw:
		return "withdraw"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

func (k Kind) valid() bool {
	return k == KindDeposit || k == KindWithdraw
}

// Encode serializes the instruction: byte 0 is the opcode, the remaining 30
// bytes are the amount big-endian, zero padded on the left. Pure function,
// same instruction always yields the same bytes.
func Encode(ins Instruction) ([Length]byte, error) {
	var encoded [Length]byte
	if !ins.Kind.valid() {
		return encoded, fmt.Errorf("%w: %d", ErrUnknownOpcode, ins.Kind)
	}
	if ins.Amount == nil || ins.Amount.Sign() < 0 {
		return encoded, ErrInvalidAmount
	}
	if ins.Amount.Cmp(maxAmount) >= 0 {
		return encoded, fmt.Errorf("%w: %s doesn't fit in %d bytes", ErrAmountTooLarge, ins.Amount, amountLength)
	}
	encoded[0] = byte(ins.Kind)
	ins.Amount.FillBytes(encoded[1:])
	return encoded, nil
}

// Decode deserializes a memo previously produced by Encode.
// Decode(Encode(ins)) == ins for every valid ins.
func Decode(raw []byte) (Instruction, error) {
	if len(raw) != Length {
		return Instruction{}, fmt.Errorf("%w, got %d", ErrInvalidLength, len(raw))
	}
	kind := Kind(raw[0])
	if !kind.valid() {
		return Instruction{}, fmt.Errorf("%w: %d", ErrUnknownOpcode, raw[0])
	}
	return Instruction{
		Kind:   kind,
		Amount: new(big.Int).SetBytes(raw[1:]),
	}, nil
}
