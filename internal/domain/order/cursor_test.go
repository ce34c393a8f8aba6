package order

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	in := cursor{
		Sort:  sortDescriptor(SortPayPrice, Desc),
		Value: "120.50",
		Idx:   42,
	}

	token := encodeCursor(in)
	require.NotEmpty(t, token)

	out, err := decodeCursor(token)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestDecodeCursor_NotBase64(t *testing.T) {
	_, err := decodeCursor("not a cursor!!!")
	require.ErrorIs(t, err, ErrMalformedCursor)
}

func TestDecodeCursor_NotJSON(t *testing.T) {
	token := base64.RawURLEncoding.EncodeToString([]byte("plain text"))

	_, err := decodeCursor(token)
	require.ErrorIs(t, err, ErrMalformedCursor)
}

func TestDecodeCursor_Truncated(t *testing.T) {
	token := encodeCursor(cursor{Sort: "idx.desc", Value: "10", Idx: 10})

	_, err := decodeCursor(token[:len(token)/2])
	require.ErrorIs(t, err, ErrMalformedCursor)
}

func TestDecodeCursor_MissingField(t *testing.T) {
	// Valid envelope and JSON but without the idx tie-breaker.
	token := base64.RawURLEncoding.EncodeToString([]byte(`{"s":"idx.desc","v":"10"}`))

	_, err := decodeCursor(token)
	require.ErrorIs(t, err, ErrMalformedCursor)
}

func TestDecodeCursor_WrongValueType(t *testing.T) {
	token := base64.RawURLEncoding.EncodeToString([]byte(`{"s":"idx.desc","v":"10","i":"ten"}`))

	_, err := decodeCursor(token)
	require.ErrorIs(t, err, ErrMalformedCursor)
}

func TestDecodeCursor_UnknownFieldsSkipped(t *testing.T) {
	token := base64.RawURLEncoding.EncodeToString([]byte(`{"s":"idx.desc","v":"10","i":7,"extra":true}`))

	c, err := decodeCursor(token)
	require.NoError(t, err)
	require.Equal(t, cursor{Sort: "idx.desc", Value: "10", Idx: 7}, c)
}

func TestSortDescriptor(t *testing.T) {
	require.Equal(t, "payPrice.asc", sortDescriptor(SortPayPrice, Asc))
	require.Equal(t, "idx.desc", sortDescriptor(SortIdx, Desc))
}
