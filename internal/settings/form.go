package settings

import (
	"errors"
	"fmt"
	"html"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	formPolicyOnce sync.Once
	formPolicy     *bluemonday.Policy
)

// formSanitizer strips all markup from submitted values.
func formSanitizer() *bluemonday.Policy {
	formPolicyOnce.Do(func() {
		formPolicy = bluemonday.StrictPolicy()
	})
	return formPolicy
}

// sanitizeFormValue removes markup and surrounding whitespace from a submitted value.
// bluemonday escapes what it keeps, so the result is unescaped back to plain text;
// the page renderer escapes again on output.
func sanitizeFormValue(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(formSanitizer().Sanitize(trimmed)))
}

// IsFormSubmission reports whether values carry any settings field.
func IsFormSubmission(values url.Values) bool {
	for key := range values {
		if key == FieldIP || key == FieldNetmask || key == FieldGateway {
			return true
		}
		if _, _, ok := splitPortField(key); ok {
			return true
		}
	}
	return false
}

// splitPortField splits "bd_1" into ("bd", 1).
func splitPortField(key string) (string, int, bool) {
	prefix, suffix, found := strings.Cut(key, "_")
	if !found {
		return "", 0, false
	}
	switch prefix {
	case PrefixIPPort, PrefixBaudRate, PrefixFlow:
	default:
		return "", 0, false
	}
	index, err := strconv.Atoi(suffix)
	if err != nil || index < 0 {
		return "", 0, false
	}
	return prefix, index, true
}

// DecodeForm applies a settings form submission on top of base and returns the
// resulting snapshot. Fields missing from values keep their base value; a port
// index not present in base is added with default settings first.
//
// Decoding only checks that values parse; callers run Validate on the result.
func DecodeForm(base Snapshot, values url.Values) (Snapshot, error) {
	out := base.Clone()
	var errs []error

	if v, ok := values[FieldIP]; ok && len(v) > 0 {
		out.IP = sanitizeFormValue(v[0])
	}
	if v, ok := values[FieldNetmask]; ok && len(v) > 0 {
		out.Netmask = sanitizeFormValue(v[0])
	}
	if v, ok := values[FieldGateway]; ok && len(v) > 0 {
		out.Gateway = sanitizeFormValue(v[0])
	}

	// Deterministic order keeps error output and added ports stable.
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		prefix, index, ok := splitPortField(key)
		if !ok || len(values[key]) == 0 {
			continue
		}
		raw := sanitizeFormValue(values[key][0])

		port := out.portRef(index)
		if port == nil {
			out.Ports = append(out.Ports, DefaultPort(index))
			port = &out.Ports[len(out.Ports)-1]
		}

		switch prefix {
		case PrefixIPPort:
			n, err := strconv.Atoi(raw)
			if err != nil {
				errs = append(errs, NewParseError(key, fmt.Sprintf("IP port %q is not a number", raw), err))
				continue
			}
			port.IPPort = n
		case PrefixBaudRate:
			b, err := ParseBaudRate(raw)
			if err != nil {
				errs = append(errs, withField(err, key))
				continue
			}
			port.BaudRate = b
		case PrefixFlow:
			f, err := ParseFlowControl(raw)
			if err != nil {
				errs = append(errs, withField(err, key))
				continue
			}
			port.FlowControl = f
		}
	}

	sort.SliceStable(out.Ports, func(i, j int) bool {
		return out.Ports[i].Index < out.Ports[j].Index
	})

	if len(errs) > 0 {
		return base, errors.Join(errs...)
	}
	return out, nil
}

func withField(err error, field string) error {
	var se *Error
	if errors.As(err, &se) && se.Field == "" {
		copied := *se
		copied.Field = field
		return &copied
	}
	return err
}

// FormValues encodes s as the form submission the settings page would send.
func FormValues(s Snapshot) url.Values {
	values := url.Values{}
	values.Set(FieldIP, s.IP)
	values.Set(FieldNetmask, s.Netmask)
	values.Set(FieldGateway, s.Gateway)

	for _, p := range s.Ports {
		values.Set(PortField(PrefixIPPort, p.Index), strconv.Itoa(p.IPPort))
		values.Set(PortField(PrefixBaudRate, p.Index), p.BaudRate.String())
		values.Set(PortField(PrefixFlow, p.Index), p.FlowControl.Code())
	}

	return values
}
