package kryoflux

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"github.com/sergev/fluxcore/adapter"
)

const (
	VendorID  = 0x03eb
	ProductID = 0x6124
)

const baudRate = 115200

// Enable for debug
const DebugFlag = false

// Clock rates reported by the device's KFInfo OOB block (sample clock and
// index clock, both in Hz), used to convert raw stream ticks to nanoseconds.
const (
	DefaultSampleClock = 24027428.5714285
	DefaultIndexClock  = 3003428.5714285625
)

// ReadBufferSize is the chunk size used when draining stream data from the
// serial port during a capture.
const ReadBufferSize = 4096

// IndexTiming records one index pulse observed in a captured stream, as
// reported by an Index OOB block.
type IndexTiming struct {
	streamPosition uint32
	sampleCounter  uint32
	indexCounter   uint32
}

// DecodedStreamData holds the flux transitions and index pulse timings
// extracted from one captured KryoFlux stream.
type DecodedStreamData struct {
	FluxTransitions []uint64
	IndexPulses     []IndexTiming
}

// Client wraps a serial port connection to a KryoFlux device
type Client struct {
	port         serial.Port
	reader       *bufio.Reader
	serialNumber string
}

// NewClient creates a new KryoFlux client using the provided port details
// It opens the serial port and initializes the connection
func NewClient(portDetails *enumerator.PortDetails) (adapter.FloppyAdapter, error) {
	// Open the serial port
	mode := &serial.Mode{
		BaudRate: baudRate,
	}
	port, err := serial.Open(portDetails.Name, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portDetails.Name, err)
	}

	client := &Client{
		port:         port,
		reader:       bufio.NewReader(port),
		serialNumber: portDetails.SerialNumber,
	}

	if err := client.sendCommand("i"); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to query device info: %w", err)
	}

	return client, nil
}

// sendCommand writes a single-line ASCII command to the device and reads
// back its reply line. The device echoes "OK" on success and "ERR..." on
// failure.
func (c *Client) sendCommand(cmd string) error {
	_, err := c.port.Write([]byte(cmd + "\n"))
	if err != nil {
		return fmt.Errorf("failed to write command %q: %w", cmd, err)
	}

	line, err := c.reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read reply to %q: %w", cmd, err)
	}
	line = strings.TrimSpace(line)
	if DebugFlag {
		fmt.Printf("--- %q -> %q\n", cmd, line)
	}
	if strings.HasPrefix(line, "ERR") {
		return fmt.Errorf("device rejected %q: %s", cmd, line)
	}
	return nil
}

// configure selects the target device/density and the track range that
// subsequent captures are restricted to.
func (c *Client) configure(device, density, minTrack, maxTrack int) error {
	cmds := []string{
		fmt.Sprintf("device=%d", device),
		fmt.Sprintf("density=%d", density),
		fmt.Sprintf("minmaxtrack=%d,%d", minTrack, maxTrack),
	}
	for _, cmd := range cmds {
		if err := c.sendCommand(cmd); err != nil {
			return err
		}
	}
	return nil
}

// motorOn seeks to the given cylinder, selects the side, and turns the
// drive motor on.
func (c *Client) motorOn(side, cyl int) error {
	if err := c.sendCommand(fmt.Sprintf("side=%d", side)); err != nil {
		return err
	}
	if err := c.sendCommand(fmt.Sprintf("track=%d", cyl)); err != nil {
		return err
	}
	if err := c.sendCommand("motor=1"); err != nil {
		return err
	}
	time.Sleep(20 * time.Millisecond)
	return nil
}

// motorOff turns the drive motor off.
func (c *Client) motorOff() error {
	return c.sendCommand("motor=0")
}

// streamOn starts a flux capture stream from the currently selected track.
func (c *Client) streamOn() error {
	return c.sendCommand("stream=1")
}

// streamOff stops an in-progress flux capture stream.
func (c *Client) streamOff() error {
	return c.sendCommand("stream=0")
}

// PrintStatus prints KryoFlux status information to stdout
func (c *Client) PrintStatus() {
	fmt.Printf("KryoFlux Adapter\n")
	fmt.Printf("Serial Number: %s\n", c.serialNumber)
	fmt.Printf("Baud Rate: %d\n", baudRate)
	fmt.Printf("Status: Connected\n")
}

// Close closes the serial port connection
func (c *Client) Close() error {
	if c.port != nil {
		return c.port.Close()
	}
	return nil
}

