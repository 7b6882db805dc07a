package state

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestOgmCodec(t *testing.T) {
	ogm := Ogm{
		Seqno:      math.MaxUint64,
		Originator: "node-a",
		Sender:     "node-b",
		Throughput: 4.436819999,
		Timestamp:  -42,
	}
	pkt, err := MarshalMessage(ogm)
	require.NoError(t, err)

	msg, err := UnmarshalMessage(pkt)
	require.NoError(t, err)
	assert.Equal(t, KindOgm, msg.Kind())
	assert.Equal(t, ogm, msg)

	// pointers encode the same way
	pkt2, err := MarshalMessage(&ogm)
	require.NoError(t, err)
	assert.Equal(t, pkt, pkt2)
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	ogm := Ogm{Seqno: 3, Originator: "A", Sender: "B", Throughput: 9.42}
	body := appendOgm(nil, ogm)
	body = protowire.AppendTag(body, 15, protowire.BytesType)
	body = protowire.AppendString(body, "future")

	pkt := protowire.AppendTag(nil, fieldKind, protowire.VarintType)
	pkt = protowire.AppendVarint(pkt, uint64(KindOgm))
	pkt = protowire.AppendTag(pkt, 9, protowire.Fixed32Type)
	pkt = protowire.AppendFixed32(pkt, 7)
	pkt = protowire.AppendTag(pkt, fieldBody, protowire.BytesType)
	pkt = protowire.AppendBytes(pkt, body)

	msg, err := UnmarshalMessage(pkt)
	require.NoError(t, err)
	assert.Equal(t, ogm, msg)
}

func TestUnmarshalInvalid(t *testing.T) {
	_, err := UnmarshalMessage(nil)
	assert.Error(t, err)

	pkt := protowire.AppendTag(nil, fieldKind, protowire.VarintType)
	pkt = protowire.AppendVarint(pkt, 99)
	_, err = UnmarshalMessage(pkt)
	assert.ErrorContains(t, err, "MessageKind(99)")

	valid, err := MarshalMessage(Ogm{Seqno: 1, Originator: "A", Sender: "A", Throughput: MaxMetric})
	require.NoError(t, err)
	_, err = UnmarshalMessage(valid[:len(valid)-3])
	assert.Error(t, err)
}

func TestMarshalNil(t *testing.T) {
	var ogm *Ogm
	_, err := MarshalMessage(ogm)
	assert.Error(t, err)
	_, err = MarshalMessage(nil)
	assert.Error(t, err)

	pkt, err := MarshalMessage(&Ogm{Seqno: 3, Originator: "A", Sender: "A"})
	require.NoError(t, err)
	msg, err := UnmarshalMessage(pkt)
	require.NoError(t, err)
	assert.Equal(t, Ogm{Seqno: 3, Originator: "A", Sender: "A"}, msg)
}
