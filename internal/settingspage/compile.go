package settingspage

import (
	"fmt"
	"strconv"
	"strings"
)

type segmentKind int

const (
	segLiteral segmentKind = iota
	segField
	segIndex
	segSelect
)

type segment struct {
	kind   segmentKind
	text   string // literal text, or the token name for diagnostics
	field  fieldToken
	option selectOption
}

type compiledLine []segment

type compiledSet []compiledLine

// Templates is the compiled, immutable form of the three line-sets.
// A Templates value is safe to share between goroutines.
type Templates struct {
	header compiledSet
	port   compiledSet
	footer compiledSet

	// groups lists the selection groups the port block contains.
	groups []group
}

// CompileError reports a template line that could not be compiled.
type CompileError struct {
	Set    string
	Line   int
	Token  string
	Reason string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s template line %d: token %q: %s", e.Set, e.Line+1, e.Token, e.Reason)
}

// Compile parses the header, port block and footer into segments.
//
// Recognised placeholders:
//   - $ip, $nm, $gw: network settings (any line-set)
//   - $pt: the port's TCP port (port block only)
//   - _$: the port index, so "pt_$" becomes "pt_0" (port block only)
//   - $sel_<value>: "selected" when the port's baud rate or flow code equals
//     <value>, otherwise empty (port block only)
//
// Any other placeholder is a compile error, so a compiled template can
// never leave a token unsubstituted.
func Compile(header, port, footer LineSet) (*Templates, error) {
	t := &Templates{}
	var err error

	if t.header, _, err = compileSet("header", header, scopePage); err != nil {
		return nil, err
	}
	var groups map[group]map[string]bool
	if t.port, groups, err = compileSet("port", port, scopePort); err != nil {
		return nil, err
	}
	if t.footer, _, err = compileSet("footer", footer, scopePage); err != nil {
		return nil, err
	}

	for _, g := range []group{groupBaud, groupFlow} {
		if len(groups[g]) > 0 {
			t.groups = append(t.groups, g)
		}
	}

	return t, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(header, port, footer LineSet) *Templates {
	t, err := Compile(header, port, footer)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultTemplates returns the built-in settings page.
func DefaultTemplates() *Templates {
	return MustCompile(headerLines, portLines, footerLines)
}

func compileSet(name string, lines LineSet, allowed scope) (compiledSet, map[group]map[string]bool, error) {
	set := make(compiledSet, 0, len(lines))
	seen := make(map[group]map[string]bool)

	for i, line := range lines {
		compiled, err := compileLine(line, allowed)
		if err != nil {
			err.Set = name
			err.Line = i
			return nil, nil, err
		}

		for _, seg := range compiled {
			if seg.kind != segSelect {
				continue
			}
			g := seg.option.group
			if seen[g] == nil {
				seen[g] = make(map[string]bool)
			}
			if seen[g][seg.text] {
				return nil, nil, &CompileError{Set: name, Line: i, Token: seg.text, Reason: "option appears twice in its group"}
			}
			seen[g][seg.text] = true
		}

		set = append(set, compiled)
	}

	return set, seen, nil
}

func isTokenByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func compileLine(line string, allowed scope) (compiledLine, *CompileError) {
	var out compiledLine
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			out = append(out, segment{kind: segLiteral, text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		if c != '$' {
			lit.WriteByte(c)
			continue
		}

		j := i + 1
		for j < len(line) && isTokenByte(line[j]) {
			j++
		}
		name := line[i+1 : j]

		switch {
		case name == "":
			if i == 0 || line[i-1] != '_' {
				return nil, &CompileError{Token: "$", Reason: "bare $ must follow an underscore"}
			}
			if allowed != scopePort {
				return nil, &CompileError{Token: "_$", Reason: "port index outside the port block"}
			}
			flush()
			out = append(out, segment{kind: segIndex, text: "_$"})

		case strings.HasPrefix(name, selectPrefix):
			value := strings.TrimPrefix(name, selectPrefix)
			opt, ok := selectOptions[value]
			if !ok {
				return nil, &CompileError{Token: "$" + name, Reason: "unknown option value"}
			}
			if allowed != scopePort {
				return nil, &CompileError{Token: "$" + name, Reason: "selection outside the port block"}
			}
			flush()
			out = append(out, segment{kind: segSelect, text: value, option: opt})

		default:
			tok, ok := fieldTokens[name]
			if !ok {
				return nil, &CompileError{Token: "$" + name, Reason: "unknown placeholder"}
			}
			if tok.scope == scopePort && allowed != scopePort {
				return nil, &CompileError{Token: "$" + name, Reason: "port placeholder outside the port block"}
			}
			flush()
			out = append(out, segment{kind: segField, text: name, field: tok})
		}

		i = j - 1
	}

	flush()
	return out, nil
}

// size estimates the output size of a line-set, used to presize buffers.
func (cs compiledSet) size() int {
	n := 0
	for _, line := range cs {
		for _, seg := range line {
			n += len(seg.text)
		}
		n++
	}
	return n
}

// indexText formats a port index for "_$" substitution. The underscore
// stays in the preceding literal.
func indexText(index int) string {
	return strconv.Itoa(index)
}
