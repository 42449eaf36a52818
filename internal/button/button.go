// Package button defines the boundary to the external gesture recognizer.
// Debouncing and press classification happen upstream; this package only
// names the three button identities and the classified press events they
// deliver.
package button

import "github.com/pkg/errors"

type ID int

const (
	Open ID = iota
	Stop
	Close
)

func (id ID) String() string {
	switch id {
	case Open:
		return "open"
	case Close:
		return "close"
	default:
		return "stop"
	}
}

type Press int

const (
	SinglePress Press = iota
	DoublePress
	LongPress
)

func (p Press) String() string {
	switch p {
	case DoublePress:
		return "double"
	case LongPress:
		return "long"
	default:
		return "single"
	}
}

// ParsePress maps a recognizer payload to a press class.
func ParsePress(s string) (Press, error) {
	switch s {
	case "single":
		return SinglePress, nil
	case "double":
		return DoublePress, nil
	case "long":
		return LongPress, nil
	}
	return 0, errors.Errorf("%q is not a supported press event", s)
}

type Event struct {
	Button ID
	Press  Press
}

// Handler consumes classified button events.
type Handler func(e Event)
