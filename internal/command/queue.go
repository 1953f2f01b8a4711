package command

import (
	"errors"

	"Roamer/internal/device"
	"Roamer/internal/util"
)

// Capacity is the number of commands the queue can hold.
const Capacity = 8

// ErrQueueFull is returned when a command is dropped because the queue is full.
var ErrQueueFull = errors.New("command queue full")

// PoseUpdater integrates the tick's motion delta before commands are evaluated.
type PoseUpdater interface {
	Update(s device.Snapshot)
}

// Outcome reports what a Tick did.
type Outcome uint8

const (
	Idle Outcome = iota
	Started
	Running
	Completed
	Interrupted
)

func (o Outcome) String() string {
	return [...]string{"idle", "started", "running", "completed", "interrupted"}[o]
}

// Queue is a fixed ring of commands. The front command is "active" once its
// start action has run. It is not safe for concurrent use: every call must
// come from the control loop, including calls made by predicates.
type Queue struct {
	buf    [Capacity]Command
	top    int
	write  int
	size   int
	active bool
	// gen changes on Clear so Tick can tell a predicate replaced the queue
	gen uint64

	pose PoseUpdater
}

// NewQueue creates an empty queue that refreshes pose through p on every
// non-empty tick. p may be nil.
func NewQueue(p PoseUpdater) *Queue {
	return &Queue{pose: p}
}

// Enqueue appends cmd and returns the new size, or ErrQueueFull.
func (q *Queue) Enqueue(cmd Command) (int, error) {
	if q.size >= Capacity {
		util.Warn("command dropped", "component", "queue", "command", cmd.Name, "err", ErrQueueFull)
		return q.size, ErrQueueFull
	}
	q.buf[q.write] = cmd
	q.write = next(q.write)
	q.size++
	return q.size, nil
}

// EnqueueFront inserts cmd ahead of everything waiting. If the front command
// is active, cmd goes directly behind it so the in-flight command is not
// shifted and restarted.
func (q *Queue) EnqueueFront(cmd Command) (int, error) {
	if q.size >= Capacity {
		util.Warn("command dropped", "component", "queue", "command", cmd.Name, "err", ErrQueueFull)
		return q.size, ErrQueueFull
	}
	for i := q.write; i != q.top; i = prev(i) {
		q.buf[i] = q.buf[prev(i)]
	}
	if q.active {
		q.buf[next(q.top)] = cmd
	} else {
		q.buf[q.top] = cmd
	}
	q.write = next(q.write)
	q.size++
	return q.size, nil
}

// Size returns the number of queued commands including the active one.
func (q *Queue) Size() int { return q.size }

// Active reports whether the front command has been started.
func (q *Queue) Active() bool { return q.active }

// Front returns a copy of the front command.
func (q *Queue) Front() (Command, bool) {
	if q.size == 0 {
		return Command{}, false
	}
	return q.buf[q.top], true
}

// Pending returns copies of all queued commands, front first.
func (q *Queue) Pending() []Command {
	out := make([]Command, 0, q.size)
	for i, n := q.top, 0; n < q.size; i, n = next(i), n+1 {
		out = append(out, q.buf[i])
	}
	return out
}

// Advance drops the front command and clears the active flag.
func (q *Queue) Advance() {
	q.active = false
	if q.size == 0 {
		return
	}
	q.buf[q.top] = Command{}
	q.top = next(q.top)
	q.size--
}

// Clear empties the queue unconditionally.
func (q *Queue) Clear() {
	q.buf = [Capacity]Command{}
	q.top, q.write, q.size = 0, 0, 0
	q.active = false
	q.gen++
}

// Tick runs one scheduling step. See Outcome for the possible results.
func (q *Queue) Tick(s device.Snapshot) Outcome {
	if q.size == 0 {
		return Idle
	}
	if q.pose != nil {
		q.pose.Update(s)
	}

	cmd := q.buf[q.top]
	if !q.active {
		q.active = true
		util.Debug("command starting", "component", "queue", "command", cmd.Name, "kind", cmd.Kind)
		if cmd.Start != nil {
			cmd.Start(cmd.Data)
		}
		return Started
	}

	gen := q.gen
	switch {
	case cmd.Complete != nil && cmd.Complete(s):
		q.finish(gen)
		util.Debug("command ended", "component", "queue", "command", cmd.Name)
		return Completed
	case cmd.Interrupt != nil && cmd.Interrupt(s):
		q.finish(gen)
		util.Debug("command interrupted", "component", "queue", "command", cmd.Name)
		return Interrupted
	}
	return Running
}

// finish advances past the command that just ended unless a predicate already
// cleared the queue, in which case the front belongs to someone else.
func (q *Queue) finish(gen uint64) {
	if q.gen != gen {
		return
	}
	q.Advance()
}

func next(i int) int { return (i + 1) % Capacity }

func prev(i int) int { return (i + Capacity - 1) % Capacity }
