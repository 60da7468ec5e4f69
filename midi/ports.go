package midi

import (
	"errors"
	"fmt"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// ErrScanTimeout is returned when the driver does not answer a port scan.
// CoreMIDI can hang; `sudo killall coreaudiod midiserver` usually helps.
var ErrScanTimeout = errors.New("midi port scan timed out")

// Ports lists available port names
type Ports struct {
	In  []string
	Out []string
}

// ListPorts scans the MIDI driver, giving up after timeout
func ListPorts(timeout time.Duration) (Ports, error) {
	type portsResult struct {
		inPorts  []drivers.In
		outPorts []drivers.Out
	}

	ch := make(chan portsResult, 1)
	go func() {
		ch <- portsResult{inPorts: gomidi.GetInPorts(), outPorts: gomidi.GetOutPorts()}
	}()

	select {
	case result := <-ch:
		var p Ports
		for _, in := range result.inPorts {
			p.In = append(p.In, in.String())
		}
		for _, out := range result.outPorts {
			p.Out = append(p.Out, out.String())
		}
		return p, nil
	case <-time.After(timeout):
		return Ports{}, ErrScanTimeout
	}
}

// OpenOutput opens the named output port
func OpenOutput(portName string) (Port, error) {
	out, err := gomidi.FindOutPort(portName)
	if err != nil {
		return nil, fmt.Errorf("find output port %q: %w", portName, err)
	}
	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("open output %q: %w", portName, err)
	}
	return &outPort{out: out, send: send}, nil
}

type outPort struct {
	out  drivers.Out
	send Sender
}

func (p *outPort) Send(msg gomidi.Message) error { return p.send(msg) }
func (p *outPort) Close() error                  { return p.out.Close() }

// CloseDriver releases the MIDI driver
func CloseDriver() {
	gomidi.CloseDriver()
}
