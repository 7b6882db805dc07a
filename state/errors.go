package state

import "fmt"

// InvalidTopologyError is returned when a topology description cannot be turned into a Network.
type InvalidTopologyError struct {
	Reason string
}

func (e *InvalidTopologyError) Error() string {
	return fmt.Sprintf("invalid topology: %s", e.Reason)
}

func invalidTopology(format string, args ...any) error {
	return &InvalidTopologyError{Reason: fmt.Sprintf(format, args...)}
}

// UnknownAddressError means a delivery or lookup named an address that is not part of the Network.
// It always indicates a bug in the topology or the engine.
type UnknownAddressError struct {
	Address NodeId
}

func (e *UnknownAddressError) Error() string {
	return fmt.Sprintf("unknown address %q", string(e.Address))
}
