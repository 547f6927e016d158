// internal/control/command.go
package control

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the command type.
type Kind int

const (
	Unrecognized Kind = iota
	Start
	Stop
	Pause
	Reset
	MoveTo
	MoveBy
)

func (k Kind) String() string {
	switch k {
	case Start:
		return "start"
	case Stop:
		return "stop"
	case Pause:
		return "pause"
	case Reset:
		return "reset"
	case MoveTo:
		return "move-to"
	case MoveBy:
		return "move-by"
	default:
		return "unrecognized"
	}
}

const (
	keyMoveTo = "update coordinates"
	keyMoveBy = "update acoordinates"
)

// Command is one parsed control line. R, Theta and Z are absolute for
// MoveTo and deltas for MoveBy. Text keeps the raw line.
type Command struct {
	Kind  Kind
	R     int
	Theta int
	Z     int
	Text  string
}

func (c Command) String() string {
	switch c.Kind {
	case MoveTo, MoveBy:
		return fmt.Sprintf("%s r=%d theta=%d z=%d", c.Kind, c.R, c.Theta, c.Z)
	case Unrecognized:
		return fmt.Sprintf("unrecognized %q", c.Text)
	default:
		return c.Kind.String()
	}
}

// Parse never fails: anything outside the grammar is Unrecognized.
func Parse(line string) Command {
	text := strings.TrimSpace(line)
	cmd := Command{Text: text}

	switch text {
	case "start":
		cmd.Kind = Start
		return cmd
	case "stop":
		cmd.Kind = Stop
		return cmd
	case "pause":
		cmd.Kind = Pause
		return cmd
	case "reset":
		cmd.Kind = Reset
		return cmd
	}

	parts := strings.Split(text, ",")
	if len(parts) != 4 {
		return cmd
	}
	var kind Kind
	switch strings.TrimSpace(parts[0]) {
	case keyMoveTo:
		kind = MoveTo
	case keyMoveBy:
		kind = MoveBy
	default:
		return cmd
	}

	var vals [3]int
	for i := range vals {
		v, err := strconv.Atoi(strings.TrimSpace(parts[i+1]))
		if err != nil {
			return cmd
		}
		vals[i] = v
	}
	cmd.Kind = kind
	cmd.R, cmd.Theta, cmd.Z = vals[0], vals[1], vals[2]
	return cmd
}
