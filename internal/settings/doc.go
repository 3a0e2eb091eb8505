// Package settings defines the serial bridge configuration model.
//
// A Snapshot holds the network settings (IP address, netmask, gateway) and
// one PortConfig per physical serial port (TCP port, baud rate, flow
// control). Snapshots are plain values: the store hands out copies and the
// page renderer never mutates what it is given.
//
// # Validation
//
// Validate checks a complete snapshot against the device's port limit and
// returns every problem found. Results whose message starts with "warning:"
// are advisory; SeparateWarningsAndErrors splits them out:
//
//	errs := settings.Validate(snap, 4)
//	warnings, critical := settings.SeparateWarningsAndErrors(errs)
//	if len(critical) > 0 {
//	    return errors.New(settings.FormatValidationErrors(critical))
//	}
//
// Baud rates and flow control modes outside the supported sets are reported
// as InvalidEnumValue errors. Every path that writes settings validates
// first, so stored snapshots only ever carry supported values.
//
// # Form Submissions
//
// The settings page submits ip, nm, gw and per-port pt_<i>, bd_<i>, fl_<i>
// fields. DecodeForm applies such a submission on top of the current
// snapshot; FormValues produces the same encoding from a snapshot.
//
// # Errors
//
// All errors are *Error values carrying an ErrorType. Use the Is* helpers
// to branch on category; they see through wrapping and errors.Join.
package settings
