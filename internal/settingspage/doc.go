// Package settingspage renders the device settings page.
//
// The page is assembled from three line-sets: a header, a block repeated
// once per serial port, and a footer. Line-sets are compiled once into
// segments so that rendering is a single pass with no string searching.
//
//	r := settingspage.NewRenderer(nil, settingspage.WithMaxPorts(2))
//	page, err := r.RenderPage(snapshot)
//
// Field values are HTML-escaped before substitution. Literal template
// text is emitted as-is.
package settingspage
