package serialports

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.bug.st/serial"

	"github.com/muurk/serlink/internal/settings"
)

func stubPorts(t *testing.T, names []string, err error) {
	t.Helper()
	orig := getPortsList
	getPortsList = func() ([]string, error) { return names, err }
	t.Cleanup(func() { getPortsList = orig })
}

func TestList_Sorted(t *testing.T) {
	stubPorts(t, []string{"/dev/ttyUSB1", "/dev/ttyS0", "/dev/ttyUSB0"}, nil)

	got, err := List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"/dev/ttyS0", "/dev/ttyUSB0", "/dev/ttyUSB1"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}

	n, err := Count()
	if err != nil || n != 3 {
		t.Errorf("Count() = %d, %v, want 3", n, err)
	}
}

func TestList_Error(t *testing.T) {
	stubPorts(t, nil, errors.New("no access"))

	if _, err := List(); err == nil {
		t.Error("List() error = nil, want error")
	}
	if _, err := Count(); err == nil {
		t.Error("Count() error = nil, want error")
	}
}

func TestMode(t *testing.T) {
	tests := []struct {
		baud settings.BaudRate
	}{
		{settings.Baud115200},
		{settings.Baud9600},
		{settings.Baud1200},
	}

	for _, tt := range tests {
		t.Run(tt.baud.String(), func(t *testing.T) {
			got := Mode(settings.PortConfig{BaudRate: tt.baud, FlowControl: settings.FlowRTSCTS})
			want := &serial.Mode{
				BaudRate: int(tt.baud),
				DataBits: 8,
				Parity:   serial.NoParity,
				StopBits: serial.OneStopBit,
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Mode() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBind(t *testing.T) {
	s := settings.Default(3)

	got := Bind(s, []string{"/dev/ttyUSB1", "/dev/ttyUSB0"})
	if len(got) != 3 {
		t.Fatalf("Bind() returned %d bindings, want 3", len(got))
	}
	wantDevices := []string{"/dev/ttyUSB0", "/dev/ttyUSB1", ""}
	for i, b := range got {
		if b.Device != wantDevices[i] {
			t.Errorf("binding %d device = %q, want %q", i, b.Device, wantDevices[i])
		}
		if b.Port.Index != i {
			t.Errorf("binding %d port index = %d", i, b.Port.Index)
		}
	}
}

func TestOpen_InvalidBaud(t *testing.T) {
	_, err := Open("/dev/null", settings.PortConfig{Index: 1, BaudRate: 300})
	if !settings.IsInvalidEnumValue(err) {
		t.Errorf("Open() error = %v, want InvalidEnumValue", err)
	}
}

// fakePort records the calls Open makes on a serial.Port.
type fakePort struct {
	serial.Port
	timeout time.Duration
	rts     bool
	closed  bool
	rtsErr  error
}

func (f *fakePort) SetReadTimeout(t time.Duration) error {
	f.timeout = t
	return nil
}

func (f *fakePort) SetRTS(rts bool) error {
	f.rts = rts
	return f.rtsErr
}

func (f *fakePort) Close() error {
	f.closed = true
	return nil
}

func stubOpen(t *testing.T, open func(string, *serial.Mode) (serial.Port, error)) {
	t.Helper()
	orig := openPort
	openPort = open
	t.Cleanup(func() { openPort = orig })
}

func TestOpen_AppliesLineSettings(t *testing.T) {
	fake := &fakePort{}
	var gotMode *serial.Mode
	stubOpen(t, func(device string, mode *serial.Mode) (serial.Port, error) {
		gotMode = mode
		return fake, nil
	})

	p := settings.PortConfig{Index: 0, IPPort: 4000, BaudRate: settings.Baud57600, FlowControl: settings.FlowRTSCTS}
	if _, err := Open("/dev/ttyUSB0", p); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if gotMode.BaudRate != 57600 {
		t.Errorf("Open() baud = %d, want 57600", gotMode.BaudRate)
	}
	if !fake.rts {
		t.Error("Open() did not assert RTS for rtsCts flow control")
	}
	if fake.timeout != DefaultReadTimeout {
		t.Errorf("Open() read timeout = %v, want %v", fake.timeout, DefaultReadTimeout)
	}
}

func TestOpen_ClosesOnSetupFailure(t *testing.T) {
	fake := &fakePort{rtsErr: errors.New("ioctl failed")}
	stubOpen(t, func(string, *serial.Mode) (serial.Port, error) { return fake, nil })

	if _, err := Open("/dev/ttyUSB0", settings.DefaultPort(0)); err == nil {
		t.Fatal("Open() error = nil, want RTS failure")
	}
	if !fake.closed {
		t.Error("Open() left the port open after a setup failure")
	}
}

func TestCheck(t *testing.T) {
	opened := map[string]*fakePort{}
	stubOpen(t, func(device string, mode *serial.Mode) (serial.Port, error) {
		if device == "/dev/ttyUSB1" {
			return nil, errors.New("device busy")
		}
		f := &fakePort{}
		opened[device] = f
		return f, nil
	})

	bindings := Bind(settings.Default(3), []string{"/dev/ttyUSB0", "/dev/ttyUSB1"})
	got := Check(bindings)
	if len(got) != 3 {
		t.Fatalf("Check() returned %d results, want 3", len(got))
	}

	tests := []struct {
		device string
		ok     bool
	}{
		{"/dev/ttyUSB0", true},
		{"/dev/ttyUSB1", false},
		{"", false},
	}
	for i, tt := range tests {
		if got[i].Device != tt.device || got[i].OK() != tt.ok {
			t.Errorf("Check()[%d] = %q ok=%v (%v), want %q ok=%v", i, got[i].Device, got[i].OK(), got[i].Err, tt.device, tt.ok)
		}
	}
	if !errors.Is(got[2].Err, ErrNoDevice) {
		t.Errorf("Check()[2] error = %v, want ErrNoDevice", got[2].Err)
	}
	if f := opened["/dev/ttyUSB0"]; f == nil || !f.closed {
		t.Error("Check() did not close /dev/ttyUSB0")
	}
}
