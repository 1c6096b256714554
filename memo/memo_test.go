package memo

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	amounts := []*big.Int{
		big.NewInt(0),
		big.NewInt(1),
		big.NewInt(1_000_000),
		new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 240), big.NewInt(1)), // max encodable
	}
	for _, kind := range []Kind{KindDeposit, KindWithdraw} {
		for _, amount := range amounts {
			ins := Instruction{Kind: kind, Amount: amount}
			encoded, err := Encode(ins)
			require.NoError(t, err, ins.String())
			decoded, err := Decode(encoded[:])
			require.NoError(t, err, ins.String())
			require.Equal(t, ins.Kind, decoded.Kind)
			require.Zero(t, ins.Amount.Cmp(decoded.Amount), ins.String())
		}
	}
}

func TestEncodeDeterministic(t *testing.T) {
	ins := Instruction{Kind: KindWithdraw, Amount: big.NewInt(42)}
	a, err := Encode(ins)
	require.NoError(t, err)
	b, err := Encode(ins)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestEncodeDepositLayout(t *testing.T) {
	encoded, err := Encode(Instruction{Kind: KindDeposit, Amount: big.NewInt(1_000_000)})
	require.NoError(t, err)
	require.Len(t, encoded, Length)
	require.Equal(t, byte(0x01), encoded[0])
	// 1_000_000 = 0x0F4240, big-endian at the tail, zero padded
	for i := 1; i < Length-3; i++ {
		require.Equal(t, byte(0), encoded[i])
	}
	require.Equal(t, []byte{0x0F, 0x42, 0x40}, encoded[Length-3:])

	decoded, err := Decode(encoded[:])
	require.NoError(t, err)
	require.Equal(t, KindDeposit, decoded.Kind)
	require.Equal(t, int64(1_000_000), decoded.Amount.Int64())
}

func TestEncodeAmountBounds(t *testing.T) {
	tooBig := new(big.Int).Lsh(big.NewInt(1), 240)
	_, err := Encode(Instruction{Kind: KindDeposit, Amount: tooBig})
	require.ErrorIs(t, err, ErrAmountTooLarge)

	wayTooBig := new(big.Int).Lsh(big.NewInt(1), 248)
	_, err = Encode(Instruction{Kind: KindDeposit, Amount: wayTooBig})
	require.ErrorIs(t, err, ErrAmountTooLarge)

	_, err = Encode(Instruction{Kind: KindDeposit, Amount: nil})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = Encode(Instruction{Kind: KindDeposit, Amount: big.NewInt(-1)})
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestEncodeUnknownKind(t *testing.T) {
	_, err := Encode(Instruction{Kind: Kind(9), Amount: big.NewInt(1)})
	require.ErrorIs(t, err, ErrUnknownOpcode)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(make([]byte, Length-1))
	require.ErrorIs(t, err, ErrInvalidLength)

	_, err = Decode(make([]byte, 32))
	require.ErrorIs(t, err, ErrInvalidLength)

	raw := make([]byte, Length)
	raw[0] = 0xFF
	_, err = Decode(raw)
	require.ErrorIs(t, err, ErrUnknownOpcode)
}
