package settingspage

import (
	"strconv"

	"github.com/muurk/serlink/internal/settings"
)

// scope says which line-sets a token may appear in.
type scope int

const (
	scopePage scope = iota // header, footer and port block
	scopePort              // port block only
)

// group identifies the <select> a selection token belongs to.
type group string

const (
	groupBaud group = "baud"
	groupFlow group = "flow"
)

const selectPrefix = "sel_"

// selectedMarker is the attribute text written for the active option.
const selectedMarker = "selected"

// renderContext carries the values resolvers read from.
type renderContext struct {
	snapshot *settings.Snapshot
	port     *settings.PortConfig
}

type fieldToken struct {
	scope   scope
	resolve func(*renderContext) string
}

// fieldTokens maps placeholder names to the snapshot value they stand for.
var fieldTokens = map[string]fieldToken{
	"ip": {scopePage, func(c *renderContext) string { return c.snapshot.IP }},
	"nm": {scopePage, func(c *renderContext) string { return c.snapshot.Netmask }},
	"gw": {scopePage, func(c *renderContext) string { return c.snapshot.Gateway }},
	"pt": {scopePort, func(c *renderContext) string { return strconv.Itoa(c.port.IPPort) }},
}

// selectOption is one $sel_ option: its group and a predicate testing
// whether a port has that option active.
type selectOption struct {
	group  group
	active func(settings.PortConfig) bool
}

var selectOptions = buildSelectOptions()

func buildSelectOptions() map[string]selectOption {
	opts := make(map[string]selectOption)
	for _, rate := range settings.BaudRates {
		rate := rate
		opts[rate.String()] = selectOption{
			group:  groupBaud,
			active: func(p settings.PortConfig) bool { return p.BaudRate == rate },
		}
	}
	for _, flow := range settings.FlowControls {
		flow := flow
		opts[flow.Code()] = selectOption{
			group:  groupFlow,
			active: func(p settings.PortConfig) bool { return p.FlowControl == flow },
		}
	}
	return opts
}
