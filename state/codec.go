package state

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// envelope fields
const (
	fieldKind protowire.Number = 1
	fieldBody protowire.Number = 2
)

// ogm fields
const (
	fieldOgmSeqno      protowire.Number = 1
	fieldOgmOriginator protowire.Number = 2
	fieldOgmSender     protowire.Number = 3
	fieldOgmThroughput protowire.Number = 4
	fieldOgmTimestamp  protowire.Number = 5
)

// MarshalMessage encodes msg in protobuf wire format.
func MarshalMessage(msg Message) ([]byte, error) {
	var body []byte
	switch m := msg.(type) {
	case Ogm:
		body = appendOgm(nil, m)
	case *Ogm:
		if m == nil {
			return nil, fmt.Errorf("cannot marshal nil %T", m)
		}
		body = appendOgm(nil, *m)
	default:
		return nil, fmt.Errorf("cannot marshal message of type %T", msg)
	}
	b := protowire.AppendTag(nil, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(msg.Kind()))
	b = protowire.AppendTag(b, fieldBody, protowire.BytesType)
	b = protowire.AppendBytes(b, body)
	return b, nil
}

// UnmarshalMessage decodes a packet produced by MarshalMessage.
func UnmarshalMessage(b []byte) (Message, error) {
	var kind MessageKind
	var body []byte
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case num == fieldKind && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			kind = MessageKind(v)
			b = b[n:]
		case num == fieldBody && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			body = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	switch kind {
	case KindOgm:
		return consumeOgm(body)
	default:
		return nil, fmt.Errorf("unknown message kind %s", kind)
	}
}

func appendOgm(b []byte, o Ogm) []byte {
	b = protowire.AppendTag(b, fieldOgmSeqno, protowire.VarintType)
	b = protowire.AppendVarint(b, o.Seqno)
	b = protowire.AppendTag(b, fieldOgmOriginator, protowire.BytesType)
	b = protowire.AppendString(b, string(o.Originator))
	b = protowire.AppendTag(b, fieldOgmSender, protowire.BytesType)
	b = protowire.AppendString(b, string(o.Sender))
	b = protowire.AppendTag(b, fieldOgmThroughput, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(o.Throughput))
	b = protowire.AppendTag(b, fieldOgmTimestamp, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(o.Timestamp))
	return b
}

func consumeOgm(b []byte) (Ogm, error) {
	var o Ogm
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return o, protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case num == fieldOgmSeqno && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return o, protowire.ParseError(n)
			}
			o.Seqno = v
			b = b[n:]
		case num == fieldOgmOriginator && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return o, protowire.ParseError(n)
			}
			o.Originator = NodeId(v)
			b = b[n:]
		case num == fieldOgmSender && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return o, protowire.ParseError(n)
			}
			o.Sender = NodeId(v)
			b = b[n:]
		case num == fieldOgmThroughput && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return o, protowire.ParseError(n)
			}
			o.Throughput = math.Float64frombits(v)
			b = b[n:]
		case num == fieldOgmTimestamp && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return o, protowire.ParseError(n)
			}
			o.Timestamp = protowire.DecodeZigZag(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return o, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return o, nil
}
