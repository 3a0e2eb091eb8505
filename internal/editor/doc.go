// Package editor is the interactive terminal editor behind
// "serlink-cfg edit".
//
// Network fields and IP ports are edited as text; baud rate and flow
// control cycle through their options with the arrow keys. Values are
// checked as they are entered and the whole snapshot is validated again
// by the Saver on save.
package editor
