package entity

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownDispatchMode is returned for an unsupported dispatch.mode value.
var ErrUnknownDispatchMode = errors.New("relay: unknown dispatch mode")

// DispatchMode selects how an accepted submission reaches the mail transport.
type DispatchMode int

const (
	// DispatchSync sends inside the request and waits for the result.
	DispatchSync DispatchMode = iota
	// DispatchAsync hands the message to the in-process queue.
	DispatchAsync
	// DispatchBroker publishes a DispatchJob to the message broker.
	DispatchBroker
)

func (m DispatchMode) String() string {
	switch m {
	case DispatchAsync:
		return "async"
	case DispatchBroker:
		return "broker"
	default:
		return "sync"
	}
}

// ParseDispatchMode maps a config value to a DispatchMode. Empty means sync.
func ParseDispatchMode(s string) (DispatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sync":
		return DispatchSync, nil
	case "async":
		return DispatchAsync, nil
	case "broker":
		return DispatchBroker, nil
	default:
		return DispatchSync, fmt.Errorf("%w: %q", ErrUnknownDispatchMode, s)
	}
}
