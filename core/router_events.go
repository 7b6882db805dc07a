package core

import "fmt"

type RouterEvent int

// trace events

const (
	OgmSent RouterEvent = iota
	OgmDroppedSelfOrigin
	OgmDroppedStale
	NextHopUpdated
	OriginatorAdded
)

// warn events

const (
	OgmDroppedNoLink RouterEvent = iota + 1000
	OgmSendRejected
)

func (e RouterEvent) String() string {
	switch e {
	case OgmSent:
		return "ogm-sent"
	case OgmDroppedSelfOrigin:
		return "ogm-dropped-self-origin"
	case OgmDroppedStale:
		return "ogm-dropped-stale"
	case NextHopUpdated:
		return "nexthop-updated"
	case OriginatorAdded:
		return "originator-added"
	case OgmDroppedNoLink:
		return "ogm-dropped-no-link"
	case OgmSendRejected:
		return "ogm-send-rejected"
	default:
		return fmt.Sprintf("RouterEvent(%d)", int(e))
	}
}

func (e RouterEvent) IsWarning() bool {
	return e >= 1000
}
