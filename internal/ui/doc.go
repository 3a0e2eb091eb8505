// Package ui renders styled terminal output for serlink-cfg.
//
// Components are "run once and exit": a Header naming the command and its
// parameters, and a Result box reporting success, failure or a warning.
// Widths follow the terminal, clamped between MinTerminalWidth and
// MaxContentWidth.
package ui
