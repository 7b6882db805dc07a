package state

import "time"

const (
	// MaxMetric is the throughput advertised by an originator, meaning "unconstrained".
	MaxMetric = 255.0
	// HopPenalty is the fraction of throughput lost on every hop an OGM traverses.
	HopPenalty = 0.058
)

var (
	// TM is the base time unit of the protocol.
	TM             = time.Millisecond * 1000
	DeliveryJitter = TM / 10 // deliveries land uniformly in [0, DeliveryJitter)
	OgmInterval    = TM      // period between two broadcasts of the same node

	// leaky bucket defaults
	DefaultTicksPerSecond = 10

	// slow dispatch warning threshold for the realtime loop
	SlowDispatchThreshold = time.Millisecond * 4
)
