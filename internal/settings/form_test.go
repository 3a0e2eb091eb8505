package settings

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeForm_AppliesSubmission(t *testing.T) {
	base := Default(1)
	values := url.Values{
		"ip":   {"10.0.0.5"},
		"nm":   {"255.0.0.0"},
		"gw":   {"10.0.0.1"},
		"pt_0": {"4001"},
		"bd_0": {"115200"},
		"fl_0": {"r"},
		"pt_1": {"4002"},
		"fl_1": {"x"},
	}

	got, err := DecodeForm(base, values)
	if err != nil {
		t.Fatalf("DecodeForm() error = %v", err)
	}

	want := Snapshot{
		IP:      "10.0.0.5",
		Netmask: "255.0.0.0",
		Gateway: "10.0.0.1",
		Ports: []PortConfig{
			{Index: 0, IPPort: 4001, BaudRate: Baud115200, FlowControl: FlowRTSCTS},
			{Index: 1, IPPort: 4002, BaudRate: Baud9600, FlowControl: FlowXONXOFF},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DecodeForm() mismatch (-want +got):\n%s", diff)
	}

	if base.IP != DefaultIP || len(base.Ports) != 1 {
		t.Error("DecodeForm() modified its base snapshot")
	}
}

func TestDecodeForm_MissingFieldsKeepBase(t *testing.T) {
	base := Default(2)
	got, err := DecodeForm(base, url.Values{"bd_1": {"2400"}})
	if err != nil {
		t.Fatalf("DecodeForm() error = %v", err)
	}

	want := base.Clone()
	want.Ports[1].BaudRate = Baud2400
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DecodeForm() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeForm_StripsMarkup(t *testing.T) {
	got, err := DecodeForm(Default(0), url.Values{"ip": {" <b>10.1.2.3</b> "}})
	if err != nil {
		t.Fatalf("DecodeForm() error = %v", err)
	}
	if got.IP != "10.1.2.3" {
		t.Errorf("IP = %q, want %q", got.IP, "10.1.2.3")
	}
}

func TestDecodeForm_Errors(t *testing.T) {
	tests := []struct {
		name   string
		values url.Values
		check  func(error) bool
		field  string
	}{
		{"unsupported baud", url.Values{"bd_0": {"14400"}}, IsInvalidEnumValue, "bd_0"},
		{"unsupported flow", url.Values{"fl_0": {"q"}}, IsInvalidEnumValue, "fl_0"},
		{"non-numeric ip port", url.Values{"pt_0": {"telnet"}}, IsParseError, "pt_0"},
		{"non-numeric baud", url.Values{"bd_0": {"fast"}}, IsParseError, "bd_0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := Default(1)
			got, err := DecodeForm(base, tt.values)
			if err == nil {
				t.Fatal("DecodeForm() expected error")
			}
			if !tt.check(err) {
				t.Errorf("DecodeForm() error = %v, wrong type", err)
			}
			var se *Error
			if !asError(err, &se) || se.Field != tt.field {
				t.Errorf("DecodeForm() error field = %v, want %s", err, tt.field)
			}
			if diff := cmp.Diff(base, got); diff != "" {
				t.Errorf("DecodeForm() should return base on error (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormValues_RoundTrip(t *testing.T) {
	s := Default(2)
	s.Ports[0].FlowControl = FlowRTSCTS
	s.Ports[1].BaudRate = Baud57600

	values := FormValues(s)
	if got := values.Get("fl_0"); got != "r" {
		t.Errorf("fl_0 = %q, want r", got)
	}
	if got := values.Get("bd_1"); got != "57600" {
		t.Errorf("bd_1 = %q, want 57600", got)
	}

	decoded, err := DecodeForm(Snapshot{}, values)
	if err != nil {
		t.Fatalf("DecodeForm() error = %v", err)
	}
	if diff := cmp.Diff(s, decoded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestIsFormSubmission(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"", false},
		{"utm_source=x", false},
		{"ip=10.0.0.1", true},
		{"bd_0=9600", true},
		{"bd_x=9600", false},
		{"port_0=1", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			values, _ := url.ParseQuery(tt.query)
			if got := IsFormSubmission(values); got != tt.want {
				t.Errorf("IsFormSubmission(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}
