package bencode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Name string
	Info RawMessage
}

func (e *envelope) UnmarshalBencode(d *Decoder) error {
	return d.Fields(func(key string, d *Decoder) (err error) {
		switch key {
		case "info":
			err = e.Info.UnmarshalBencode(d)
		case "name":
			e.Name, err = d.Text()
		default:
			err = d.Skip()
		}
		return err
	})
}

func TestRawMessage_CapturesExactBytes(t *testing.T) {
	input := []byte("d4:infod1:zi1e1:ai03ee4:name1:xe")
	var env envelope
	require.NoError(t, Unmarshal(input, &env))

	assert.Equal(t, "x", env.Name)
	assert.Equal(t, "d1:zi1e1:ai03ee", string(env.Info), "unsorted keys and leading zeros are kept")

	input[8] = 'q'
	assert.Equal(t, "d1:zi1e1:ai03ee", string(env.Info), "raw bytes are copied")
}

func TestRawMessage_Value(t *testing.T) {
	raw := RawMessage("li1e3:abce")
	v, err := raw.Value()
	require.NoError(t, err)
	assert.Equal(t, 2, v.Len())

	out, err := Marshal(raw)
	require.NoError(t, err)
	assert.Equal(t, []byte(raw), out)
}

func TestRawMessage_InsideEncoder(t *testing.T) {
	e := NewEncoder(CanonicalEncodeOptions())
	m, err := e.EncodeDict()
	require.NoError(t, err)
	require.NoError(t, m.Entry("z", RawMessage("d1:bi1e1:ai2ee")))
	require.NoError(t, m.Entry("a", Int(1)))
	require.NoError(t, m.End())

	assert.Equal(t, "d1:ai1e1:zd1:bi1e1:ai2eee", string(e.Bytes()), "raw values are not reordered")
}
