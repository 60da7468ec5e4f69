package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"stepseq/clock"
	"stepseq/midi"
	"stepseq/sequencer"
)

// closeDriver is swapped out in tests
var closeDriver = midi.CloseDriver

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the exit code once the driver is closed
func run(args []string) int {
	if len(args) < 1 {
		usage()
		return 0
	}
	defer closeDriver()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var err error
	switch args[0] {
	case "list":
		err = listPorts()
	case "poll":
		err = pollPorts(ctx)
	case "clock":
		err = measureClock(ctx, arg(args, 1))
	case "gate":
		err = testGate(ctx, arg(args, 1))
	default:
		usage()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func arg(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return ""
}

func usage() {
	fmt.Println("MIDI Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list          - List all MIDI ports")
	fmt.Println("  poll          - Poll for port changes")
	fmt.Println("  clock <in>    - Print the tempo of an incoming MIDI clock")
	fmt.Println("  gate <out>    - Play one bar of gates at 120bpm")
}

func listPorts() error {
	fmt.Println("(waiting up to 3 seconds...)")
	ports, err := midi.ListPorts(3 * time.Second)
	if err != nil {
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
		return err
	}

	fmt.Println("=== MIDI Input Ports ===")
	for i, p := range ports.In {
		fmt.Printf("  %d: %s\n", i, p)
	}
	fmt.Println("\n=== MIDI Output Ports ===")
	for i, p := range ports.Out {
		fmt.Printf("  %d: %s\n", i, p)
	}
	return nil
}

func pollPorts(ctx context.Context) error {
	ports, err := midi.ListPorts(3 * time.Second)
	if err != nil {
		return err
	}
	names := append(ports.In, ports.Out...)
	fmt.Printf("Watching %d ports. Ctrl+C to exit.\n", len(names))

	w := midi.NewPortWatcher(names...)
	go w.Run(ctx)
	for ev := range w.Events() {
		fmt.Printf("[%s] %s %s\n", time.Now().Format("15:04:05"), ev.Name, ev.Type)
	}
	return nil
}

// pulseCounter counts timing clock pulses
type pulseCounter struct {
	pulses  atomic.Int64
	running atomic.Bool
}

func (p *pulseCounter) Tick()   { p.pulses.Add(1) }
func (p *pulseCounter) Start()  { p.running.Store(true) }
func (p *pulseCounter) Stop()   { p.running.Store(false) }
func (p *pulseCounter) Rewind() {}

func measureClock(ctx context.Context, port string) error {
	if port == "" {
		return fmt.Errorf("clock needs an input port name")
	}

	counter := &pulseCounter{}
	in := midi.NewClockInput(counter)
	if err := in.Listen(port); err != nil {
		return err
	}
	defer in.Close()

	fmt.Printf("Listening on %s. Ctrl+C to exit.\n", port)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	last := int64(0)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n := counter.pulses.Load()
			bpm := float64(n-last) / 2 / sequencer.DefaultPPQ * 60
			last = n
			fmt.Printf("%6.1f bpm  running=%v\n", bpm, counter.running.Load())
		}
	}
}

func testGate(ctx context.Context, port string) error {
	if port == "" {
		return fmt.Errorf("gate needs an output port name")
	}
	p, err := midi.OpenOutput(port)
	if err != nil {
		return err
	}
	defer p.Close()

	e := sequencer.NewEngine()
	out := midi.NewGateOutput(p.Send, midi.DefaultOutputConfig())
	defer e.Subscribe(out)()
	e.Subscribe(sequencer.ObserverFuncs{
		OnStep: func(step int) { fmt.Printf("step %d\n", step+1) },
	})

	clk := clock.NewInternal(120, sequencer.DefaultPPQ)
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	e.Start()
	_ = clk.Run(ctx, e)
	e.Stop()

	if n, err := out.Errors(); n > 0 {
		return fmt.Errorf("%d send errors, last: %w", n, err)
	}
	fmt.Println("Done!")
	return nil
}
