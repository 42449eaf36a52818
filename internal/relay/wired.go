package relay

import (
	"github.com/racerxdl/go-mcp23017"
	"github.com/stianeikeland/go-rpio/v4"
)

type SetPin interface {
	High() error
	Low() error
}

// Wired drives a physical relay through a SetPin. NormalClosed inverts the
// levels for relays wired on the NC contact.
type Wired struct {
	Pin          SetPin
	NormalClosed bool

	isOn bool
}

func (p *Wired) Set(on bool) error {
	var err error
	if on != p.NormalClosed {
		err = p.Pin.High()
	} else {
		err = p.Pin.Low()
	}
	if err != nil {
		return err
	}

	p.isOn = on
	return nil
}

func (p *Wired) IsOn() bool {
	return p.isOn
}

type Mcp23017Pin struct {
	device *mcp23017.Device
	pin    uint8
}

func NewMcp23017Pin(device *mcp23017.Device, pin uint8) (p *Mcp23017Pin, err error) {
	p = &Mcp23017Pin{}
	p.device = device
	p.pin = pin
	err = p.device.PinMode(pin, mcp23017.OUTPUT)
	return p, err
}

func (m *Mcp23017Pin) High() error {
	return m.device.DigitalWrite(m.pin, mcp23017.HIGH)
}

func (m *Mcp23017Pin) Low() error {
	return m.device.DigitalWrite(m.pin, mcp23017.LOW)
}

// RpioPin drives a relay directly from a Raspberry Pi GPIO.
// rpio.Open must have been called before the pin is used.
type RpioPin struct {
	pin rpio.Pin
}

func NewRpioPin(pin uint8) *RpioPin {
	p := rpio.Pin(pin)
	p.Output()
	return &RpioPin{pin: p}
}

func (r *RpioPin) High() error {
	r.pin.High()
	return nil
}

func (r *RpioPin) Low() error {
	r.pin.Low()
	return nil
}
