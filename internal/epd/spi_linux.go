//go:build linux

package epd

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// BCM pin numbers of the standard Waveshare e-paper HAT wiring.
const (
	bcmRST  = 17
	bcmDC   = 25
	bcmBUSY = 24
	bcmPWR  = 18
)

// Largest SPI transfer periph passes through in one transaction.
const spiChunk = 4096

const busyTimeout = 30 * time.Second

// spiDriver is the periph.io implementation of Driver.
type spiDriver struct {
	port   spi.PortCloser
	conn   spi.Conn
	rst    gpio.PinOut
	dc     gpio.PinOut
	pwr    gpio.PinOut
	busy   gpio.PinIn
	logger *zap.Logger
}

// NewDriver opens the SPI bus and GPIO pins for the panel.
func NewDriver(logger *zap.Logger) (Driver, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init failed: %w", err)
	}

	port, err := spireg.Open("")
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port: %w", err)
	}

	conn, err := port.Connect(4*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to connect SPI: %w", err)
	}

	d := &spiDriver{port: port, conn: conn, logger: logger}

	outPin := func(num int, level gpio.Level) (gpio.PinOut, error) {
		p := gpioreg.ByName(fmt.Sprintf("GPIO%d", num))
		if p == nil {
			return nil, fmt.Errorf("gpio GPIO%d not found", num)
		}
		if err := p.Out(level); err != nil {
			return nil, fmt.Errorf("gpio GPIO%d out failed: %w", num, err)
		}
		return p, nil
	}

	if d.rst, err = outPin(bcmRST, gpio.High); err != nil {
		_ = port.Close()
		return nil, err
	}
	if d.dc, err = outPin(bcmDC, gpio.Low); err != nil {
		_ = port.Close()
		return nil, err
	}
	if d.pwr, err = outPin(bcmPWR, gpio.High); err != nil {
		_ = port.Close()
		return nil, err
	}

	busy := gpioreg.ByName(fmt.Sprintf("GPIO%d", bcmBUSY))
	if busy == nil {
		_ = port.Close()
		return nil, fmt.Errorf("gpio GPIO%d not found", bcmBUSY)
	}
	if err := busy.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("gpio GPIO%d in failed: %w", bcmBUSY, err)
	}
	d.busy = busy

	logger.Debug("Display driver opened",
		zap.Int("width", Width),
		zap.Int("height", Height))
	return d, nil
}

func (d *spiDriver) Size() (int, int) {
	return Width, Height
}

// Init wakes the panel and loads the register configuration for the
// black/red refresh waveform.
func (d *spiDriver) Init() error {
	d.reset()

	// Power setting: internal VDH/VDL, +-15V.
	if err := d.command(0x01, 0x07, 0x07, 0x3F, 0x3F); err != nil {
		return err
	}
	// Booster soft start.
	if err := d.command(0x06, 0x17, 0x17, 0x28, 0x17); err != nil {
		return err
	}
	// Power on.
	if err := d.command(0x04); err != nil {
		return err
	}
	if err := d.waitIdle(); err != nil {
		return err
	}
	// Panel setting: KWR mode, LUT from OTP.
	if err := d.command(0x00, 0x0F); err != nil {
		return err
	}
	// Resolution.
	if err := d.command(0x61,
		byte(Width>>8), byte(Width&0xFF),
		byte(Height>>8), byte(Height&0xFF)); err != nil {
		return err
	}
	// Dual SPI off.
	if err := d.command(0x15, 0x00); err != nil {
		return err
	}
	// VCOM and data interval.
	if err := d.command(0x50, 0x11, 0x07); err != nil {
		return err
	}
	// TCON.
	if err := d.command(0x60, 0x22); err != nil {
		return err
	}

	d.logger.Debug("Panel initialized")
	return nil
}

// Display pushes both planes and triggers a refresh. The black buffer is
// sent as-is; the panel expects the red channel with inverted polarity.
func (d *spiDriver) Display(black, red []byte) error {
	if err := checkBufferSize("black", black, Width, Height); err != nil {
		return err
	}
	if err := checkBufferSize("red", red, Width, Height); err != nil {
		return err
	}

	if err := d.command(0x10); err != nil {
		return err
	}
	if err := d.data(black); err != nil {
		return err
	}

	inverted := make([]byte, len(red))
	for i, b := range red {
		inverted[i] = ^b
	}
	if err := d.command(0x13); err != nil {
		return err
	}
	if err := d.data(inverted); err != nil {
		return err
	}

	if err := d.command(0x12); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	if err := d.waitIdle(); err != nil {
		return err
	}

	d.logger.Debug("Panel refresh complete")
	return nil
}

// Clear blanks the panel to white.
func (d *spiDriver) Clear() error {
	blank := BlankBuffer(Width, Height)
	return d.Display(blank, blank)
}

// Sleep powers the panel off and enters deep sleep.
func (d *spiDriver) Sleep() error {
	if err := d.command(0x02); err != nil {
		return err
	}
	if err := d.waitIdle(); err != nil {
		return err
	}
	if err := d.command(0x07, 0xA5); err != nil {
		return err
	}
	d.logger.Debug("Panel asleep")
	return nil
}

// Close releases the SPI bus. The panel should be asleep first.
func (d *spiDriver) Close() error {
	_ = d.pwr.Out(gpio.Low)
	return d.port.Close()
}

// reset pulses the hardware reset line.
func (d *spiDriver) reset() {
	_ = d.rst.Out(gpio.High)
	time.Sleep(20 * time.Millisecond)
	_ = d.rst.Out(gpio.Low)
	time.Sleep(2 * time.Millisecond)
	_ = d.rst.Out(gpio.High)
	time.Sleep(20 * time.Millisecond)
}

// command sends one register command followed by its data bytes.
func (d *spiDriver) command(cmd byte, args ...byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	if err := d.conn.Tx([]byte{cmd}, nil); err != nil {
		return fmt.Errorf("command 0x%02x failed: %w", cmd, err)
	}
	if len(args) == 0 {
		return nil
	}
	return d.data(args)
}

// data streams a buffer with the DC line high, chunked to the SPI
// transfer limit.
func (d *spiDriver) data(buf []byte) error {
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	for off := 0; off < len(buf); off += spiChunk {
		end := off + spiChunk
		if end > len(buf) {
			end = len(buf)
		}
		if err := d.conn.Tx(buf[off:end], nil); err != nil {
			return fmt.Errorf("data write failed at offset %d: %w", off, err)
		}
	}
	return nil
}

// waitIdle blocks until the panel releases the busy line. The line is low
// while the controller works.
func (d *spiDriver) waitIdle() error {
	deadline := time.Now().Add(busyTimeout)
	for d.busy.Read() == gpio.Low {
		if time.Now().After(deadline) {
			return fmt.Errorf("panel busy for more than %s", busyTimeout)
		}
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}
