// Package command implements the cooperative command queue that sequences the
// robot's motion primitives. A command is a start action plus two sticky
// predicates: the queue advances the first time either the completion or the
// interrupt predicate reports true and never evaluates either again.
package command

import "Roamer/internal/device"

// Kind tags the payload carried by a command.
type Kind uint8

const (
	// KindMove carries a signed distance or angle in Data.Distance.
	KindMove Kind = iota
	// KindMoveTo carries an absolute point and stand-off in Data.X/Y/Approach.
	KindMoveTo
	// KindInvoke carries a callback in Data.Fn.
	KindInvoke
)

func (k Kind) String() string {
	switch k {
	case KindMove:
		return "move"
	case KindMoveTo:
		return "move-to"
	case KindInvoke:
		return "invoke"
	}
	return "unknown"
}

// Data is the command payload.
type Data struct {
	Distance float64
	X, Y     float64
	Approach float64
	Fn       func()
}

// Predicate inspects the tick's sensor snapshot. Interrupt predicates perform
// their own side effects (stop, enqueue follow-ups) before returning true.
type Predicate func(s device.Snapshot) bool

// Command is copied by value into the queue.
type Command struct {
	Name      string
	Kind      Kind
	Data      Data
	Start     func(d Data)
	Complete  Predicate
	Interrupt Predicate
}

// Always is a predicate that is immediately true.
func Always(device.Snapshot) bool { return true }

// Never is a predicate that is never true.
func Never(device.Snapshot) bool { return false }

// Invoke builds a command that calls fn when started and completes on the
// following tick.
func Invoke(name string, fn func()) Command {
	return Command{
		Name:      name,
		Kind:      KindInvoke,
		Data:      Data{Fn: fn},
		Start:     func(d Data) { d.Fn() },
		Complete:  Always,
		Interrupt: Never,
	}
}
