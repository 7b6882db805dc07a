package state

import "fmt"

type MessageKind uint8

const (
	KindOgm MessageKind = iota + 1
)

func (k MessageKind) String() string {
	switch k {
	case KindOgm:
		return "OGM"
	default:
		return fmt.Sprintf("MessageKind(%d)", uint8(k))
	}
}

// Message is the closed set of packets nodes exchange. New kinds are added here and handled in
// core.HandleMessage.
type Message interface {
	Kind() MessageKind
	sealed()
}

// Ogm is an Originator Message.
type Ogm struct {
	Seqno      uint64
	Originator NodeId
	Sender     NodeId // rewritten by every relaying node
	Throughput float64
	Timestamp  int64 // unix milliseconds at origination, diagnostic only
}

func (Ogm) Kind() MessageKind { return KindOgm }
func (Ogm) sealed()           {}

func (o Ogm) String() string {
	return fmt.Sprintf("(orig: %s, sender: %s, seqno: %d, throughput: %.4f)", o.Originator, o.Sender, o.Seqno, o.Throughput)
}
