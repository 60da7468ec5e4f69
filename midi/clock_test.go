package midi

import (
	"reflect"
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"
)

type fakeTransport struct {
	calls []string
}

func (f *fakeTransport) Tick()   { f.calls = append(f.calls, "tick") }
func (f *fakeTransport) Start()  { f.calls = append(f.calls, "start") }
func (f *fakeTransport) Stop()   { f.calls = append(f.calls, "stop") }
func (f *fakeTransport) Rewind() { f.calls = append(f.calls, "rewind") }

func TestClockInputRoutesRealtimeMessages(t *testing.T) {
	tests := []struct {
		name string
		msg  gomidi.Message
		want []string
	}{
		{"timing clock", gomidi.Message{0xF8}, []string{"tick"}},
		{"start rewinds", gomidi.Message{0xFA}, []string{"rewind", "start"}},
		{"continue", gomidi.Message{0xFB}, []string{"start"}},
		{"stop", gomidi.Message{0xFC}, []string{"stop"}},
		{"note on ignored", gomidi.NoteOn(0, 60, 100), nil},
		{"cc ignored", gomidi.ControlChange(0, 1, 64), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeTransport{}
			NewClockInput(f).HandleMessage(tt.msg)
			if !reflect.DeepEqual(f.calls, tt.want) {
				t.Fatalf("calls = %v, want %v", f.calls, tt.want)
			}
		})
	}
}

func TestClockInputCloseWithoutListen(t *testing.T) {
	c := NewClockInput(&fakeTransport{})
	c.Close()
	c.Close()
}
