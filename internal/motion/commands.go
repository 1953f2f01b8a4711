package motion

import (
	"Roamer/internal/command"
	"Roamer/internal/geom"
)

func orNever(p command.Predicate) command.Predicate {
	if p == nil {
		return command.Never
	}
	return p
}

// Move drives d mm forward along the current target heading.
func (c *Controller) Move(d float64, intr command.Predicate) command.Command {
	return command.Command{
		Name:      "move",
		Kind:      command.KindMove,
		Data:      command.Data{Distance: d},
		Start:     func(d command.Data) { c.StartLinear(d.Distance) },
		Complete:  c.Done,
		Interrupt: orNever(intr),
	}
}

// Reverse backs up d mm.
func (c *Controller) Reverse(d float64, intr command.Predicate) command.Command {
	return command.Command{
		Name:      "reverse",
		Kind:      command.KindMove,
		Data:      command.Data{Distance: d},
		Start:     func(d command.Data) { c.StartReverse(d.Distance) },
		Complete:  c.Done,
		Interrupt: orNever(intr),
	}
}

// Approach drives toward (x, y) and stops offset mm short of it.
func (c *Controller) Approach(x, y, offset float64, intr command.Predicate) command.Command {
	return command.Command{
		Name:      "approach",
		Kind:      command.KindMoveTo,
		Data:      command.Data{X: x, Y: y, Approach: offset},
		Start:     func(d command.Data) { c.StartApproach(d.X, d.Y, d.Approach) },
		Complete:  c.Done,
		Interrupt: orNever(intr),
	}
}

// MoveTo drives to (x, y).
func (c *Controller) MoveTo(x, y float64, intr command.Predicate) command.Command {
	cmd := c.Approach(x, y, 0, intr)
	cmd.Name = "move-to"
	return cmd
}

// Rotate turns deg degrees relative to the current target heading,
// counter-clockwise positive.
func (c *Controller) Rotate(deg float64, intr command.Predicate) command.Command {
	return command.Command{
		Name:      "rotate",
		Kind:      command.KindMove,
		Data:      command.Data{Distance: deg},
		Start:     func(d command.Data) { c.StartRotate(d.Distance) },
		Complete:  c.Done,
		Interrupt: orNever(intr),
	}
}

// RotateTo turns to the absolute heading deg.
func (c *Controller) RotateTo(deg float64, intr command.Predicate) command.Command {
	return command.Command{
		Name:      "rotate-to",
		Kind:      command.KindMove,
		Data:      command.Data{Distance: geom.Normalize(deg)},
		Start:     func(d command.Data) { c.StartRotateTo(d.Distance) },
		Complete:  c.Done,
		Interrupt: orNever(intr),
	}
}
