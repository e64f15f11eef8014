package strategy

import (
	"fmt"
	"math"
)

// Side is the direction of an exposure.
type Side int8

const (
	Short Side = -1
	Flat  Side = 0
	Long  Side = 1
)

func (s Side) String() string {
	switch s {
	case Short:
		return "SHORT"
	case Long:
		return "LONG"
	}
	return "FLAT"
}

// sizeEpsilon bounds the size comparison in Resolve. Targets produced by
// float math flap below this tolerance and must not churn orders.
const sizeEpsilon = 1e-9

// Position is a directed exposure. Size is a fraction of capital and is
// always >= 0; direction lives in Side. Price is the reference fill price,
// zero until the fill is known.
type Position struct {
	Side       Side
	Size       float64
	Price      float64
	StopLoss   float64
	TakeProfit float64
}

// NewPosition builds a directed position; a flat side forces size to 0.
func NewPosition(side Side, size, price float64) Position {
	if side == Flat {
		return Position{}
	}
	return Position{Side: side, Size: math.Abs(size), Price: price}
}

// FromValue converts a signed target value (sign = direction, magnitude =
// size fraction) into a Position.
func FromValue(value float64) Position {
	switch {
	case value > 0:
		return Position{Side: Long, Size: value}
	case value < 0:
		return Position{Side: Short, Size: -value}
	}
	return Position{}
}

// Value folds side and size back into a signed fraction of capital.
func (p Position) Value() float64 {
	return float64(p.Side) * p.Size
}

func (p Position) IsFlat() bool {
	return p.Side == Flat
}

func (p Position) String() string {
	if p.IsFlat() {
		return "FLAT"
	}
	return fmt.Sprintf("%s %.4f @ %.2f", p.Side, p.Size, p.Price)
}

// ActionType discriminates the Action union.
type ActionType int

const (
	ActionNone ActionType = iota
	ActionOpen
	ActionClose
	ActionAdjust
)

func (t ActionType) String() string {
	switch t {
	case ActionOpen:
		return "OPEN"
	case ActionClose:
		return "CLOSE"
	case ActionAdjust:
		return "ADJUST"
	}
	return "NONE"
}

// Action is the per-bar transition decision. Exactly one type is active:
// Open carries the desired position (price unset until fill), Close carries
// the position being closed, Adjust carries the resized position.
type Action struct {
	Type     ActionType
	Position Position
}

func (a Action) String() string {
	if a.Type == ActionNone {
		return "NONE"
	}
	return fmt.Sprintf("%s %s", a.Type, a.Position)
}

// Resolve maps (previous confirmed position, new target) to the single
// Action that transitions between them. It is total: every pair yields
// exactly one of the four types. A direction flip resolves to Open; the
// executor closes the prior exposure first.
func Resolve(prev, target Position) Action {
	switch {
	case prev.IsFlat() && target.IsFlat():
		return Action{Type: ActionNone}
	case prev.IsFlat():
		return Action{Type: ActionOpen, Position: target}
	case target.IsFlat():
		return Action{Type: ActionClose, Position: prev}
	case prev.Side != target.Side:
		return Action{Type: ActionOpen, Position: target}
	case math.Abs(prev.Size-target.Size) <= sizeEpsilon:
		return Action{Type: ActionNone}
	}
	return Action{Type: ActionAdjust, Position: target}
}

// Apply returns the confirmed position after an action executes against
// prev. Resolve then Apply round-trips: Apply(prev, Resolve(prev, t))
// equals t up to the size tolerance.
func Apply(prev Position, a Action) Position {
	switch a.Type {
	case ActionOpen, ActionAdjust:
		return a.Position
	case ActionClose:
		return Position{}
	}
	return prev
}
