// Package server serves the settings page and a small JSON API.
//
// # Routes
//
//	GET  /              settings page; query fields ip, nm, gw, pt_<i>, bd_<i>, fl_<i> are applied first
//	GET  /boot          as /, then the reboot hook runs once the page is sent
//	GET  /api/settings  current settings as JSON
//	PUT  /api/settings  replace settings; validated before they are stored
//	POST /api/reboot    run the reboot hook
//	GET  /api/events    websocket stream of settings_updated events
//	GET  /healthz       liveness probe
//
// A rejected form submission answers 400 with a plain-text list of
// problems and leaves the stored settings untouched. A page that cannot be
// rendered answers 422 for too many ports and 500 otherwise.
//
// # Shutdown
//
// Start handles SIGINT and SIGTERM. In-flight requests get
// Config.ShutdownTimeout to finish; event streams are closed immediately.
package server
