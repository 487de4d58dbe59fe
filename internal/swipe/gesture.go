// Package swipe turns a pointer drag on the top job card into a decision.
package swipe

import "math"

// Drag geometry, in pointer units
const (
	SwipeThreshold     = 100.0
	IndicatorThreshold = 50.0
	MinOpacity         = 0.6
	RotationFactor     = 0.1
	OpacityFalloff     = 200.0
)

// Decision is the discrete outcome of a drag or a button press
type Decision int

const (
	None Decision = iota
	Accept
	Reject
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case Reject:
		return "reject"
	default:
		return "none"
	}
}

type Point struct {
	X, Y float64
}

func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Feedback is what the card renders while it is being dragged
type Feedback struct {
	Offset       Point
	Rotation     float64
	Opacity      float64
	AcceptActive bool
	RejectActive bool
}

// FeedbackFor computes the rendering feedback for a drag offset
func FeedbackFor(offset Point) Feedback {
	return Feedback{
		Offset:       offset,
		Rotation:     offset.X * RotationFactor,
		Opacity:      math.Max(MinOpacity, 1-math.Abs(offset.X)/OpacityFalloff),
		AcceptActive: offset.X > IndicatorThreshold,
		RejectActive: offset.X < -IndicatorThreshold,
	}
}

// DecisionFor maps a final offset to a decision
func DecisionFor(offset Point) Decision {
	switch {
	case offset.X > SwipeThreshold:
		return Accept
	case offset.X < -SwipeThreshold:
		return Reject
	default:
		return None
	}
}

// Interpreter tracks at most one drag session on the top card.
// It is not safe for concurrent use; the UI loop owns it.
type Interpreter struct {
	dragging bool
	start    Point
	offset   Point
}

// Press opens a drag session at p, replacing any open one
func (in *Interpreter) Press(p Point) {
	in.dragging = true
	in.start = p
	in.offset = Point{}
}

// Move updates the offset of the open session
func (in *Interpreter) Move(p Point) Feedback {
	if !in.dragging {
		return FeedbackFor(Point{})
	}
	in.offset = p.Sub(in.start)
	return FeedbackFor(in.offset)
}

// Release closes the session and reports the decision, if any.
// Without an open session it returns None.
func (in *Interpreter) Release() Decision {
	if !in.dragging {
		return None
	}
	decision := DecisionFor(in.offset)
	in.reset()
	return decision
}

// Leave is pointer-leave; it behaves exactly like Release
func (in *Interpreter) Leave() Decision {
	return in.Release()
}

// Cancel drops the session without a decision
func (in *Interpreter) Cancel() {
	in.reset()
}

func (in *Interpreter) Dragging() bool {
	return in.dragging
}

func (in *Interpreter) Offset() Point {
	return in.offset
}

func (in *Interpreter) Feedback() Feedback {
	return FeedbackFor(in.offset)
}

func (in *Interpreter) reset() {
	in.dragging = false
	in.start = Point{}
	in.offset = Point{}
}
