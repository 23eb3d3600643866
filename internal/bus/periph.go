package bus

import (
	"periph.io/x/conn/v3/i2c"
)

// periphTransport adapts a periph I²C device to Transport.
type periphTransport struct {
	dev *i2c.Dev
}

// NewPeriph returns a Transport talking to the device at addr on b.
func NewPeriph(b i2c.Bus, addr uint16) Transport {
	return &periphTransport{dev: &i2c.Dev{Bus: b, Addr: addr}}
}

func (p *periphTransport) Send(b []byte) (int, error) {
	return p.dev.Write(b)
}

func (p *periphTransport) Transfer(w, r []byte) error {
	return p.dev.Tx(w, r)
}

// String implements fmt.Stringer for log output.
func (p *periphTransport) String() string {
	return p.dev.String()
}
