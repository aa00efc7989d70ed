// Package playback drives a story's slides as a timed slideshow.
//
// A Player owns at most one pending advance trigger: the display timer of
// an image slide or the end-of-media hook of a video slide. Every
// transition retires the pending trigger before arming the next one, and a
// retired trigger is inert even if its timer already fired and is waiting
// for the lock.
package playback

import (
	"sync"

	"webstories/models"
)

type ExitReason int

const (
	// Finished means the last slide advanced.
	Finished ExitReason = iota
	// Closed means the viewer left playback explicitly.
	Closed
)

func (r ExitReason) String() string {
	switch r {
	case Finished:
		return "finished"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

type Key int

const (
	KeyRight Key = iota
	KeyLeft
	KeyEscape
)

type Button int

const (
	ButtonPrev Button = iota
	ButtonNext
	ButtonClose
)

// SwipeThreshold is the minimum horizontal travel of a navigating swipe.
const SwipeThreshold = 50

// Frame describes the slide being entered.
type Frame struct {
	Index int
	Total int
	Slide models.Slide
	// Ended must be called when a video slide's media finishes playing. It
	// is nil for image slides and does nothing once the slide is left.
	Ended func()
}

// Progress is the share of the story shown so far, in (0, 1].
func (f Frame) Progress() float64 {
	return float64(f.Index+1) / float64(f.Total)
}

type Options struct {
	// Clock defaults to SystemClock.
	Clock   Clock
	OnEnter func(Frame)
	OnExit  func(ExitReason)
}

// Player is safe for concurrent use. Callbacks run outside its lock and
// may call back into the Player.
type Player struct {
	mu      sync.Mutex
	slides  []models.Slide
	index   int
	clock   Clock
	timer   Timer
	gen     uint64
	started bool
	done    bool

	onEnter func(Frame)
	onExit  func(ExitReason)
}

// New returns a Player positioned on the first slide. slides must not be
// empty.
func New(slides []models.Slide, opts Options) *Player {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	return &Player{
		slides:  slides,
		clock:   clock,
		onEnter: opts.OnEnter,
		onExit:  opts.OnExit,
	}
}

// Start enters the first slide. Later calls do nothing.
func (p *Player) Start() {
	p.mu.Lock()
	if p.started || p.done {
		p.mu.Unlock()
		return
	}
	p.started = true
	notify := p.enterLocked()
	p.mu.Unlock()
	notify()
}

func (p *Player) Index() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index
}

func (p *Player) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Advance moves to the next slide, or finishes playback on the last one.
func (p *Player) Advance() {
	p.do(func() func() { return p.advanceLocked() })
}

// Retreat moves to the previous slide. On the first slide it does nothing
// and the pending trigger stays armed.
func (p *Player) Retreat() {
	p.do(func() func() {
		if p.index == 0 {
			return noop
		}
		p.cancelLocked()
		p.index--
		return p.enterLocked()
	})
}

// Close leaves playback immediately. Closing before Start also counts: a
// later Start does nothing.
func (p *Player) Close() {
	p.mu.Lock()
	if p.done {
		p.mu.Unlock()
		return
	}
	notify := p.exitLocked(Closed)
	p.mu.Unlock()
	notify()
}

func (p *Player) Key(k Key) {
	switch k {
	case KeyRight:
		p.Advance()
	case KeyLeft:
		p.Retreat()
	case KeyEscape:
		p.Close()
	}
}

func (p *Player) Press(b Button) {
	switch b {
	case ButtonPrev:
		p.Retreat()
	case ButtonNext:
		p.Advance()
	case ButtonClose:
		p.Close()
	}
}

// Click navigates by which half of a display of the given width was hit.
func (p *Player) Click(x, width float64) {
	if x < width/2 {
		p.Retreat()
		return
	}
	p.Advance()
}

// Swipe navigates for a touch that travelled (dx, dy) between start and
// end. Only a mostly horizontal gesture longer than SwipeThreshold counts:
// a leftward one advances, a rightward one retreats. It reports whether
// the gesture was taken as navigation.
func (p *Player) Swipe(dx, dy float64) bool {
	adx, ady := abs(dx), abs(dy)
	if adx <= SwipeThreshold || adx <= ady {
		return false
	}
	if dx < 0 {
		p.Advance()
	} else {
		p.Retreat()
	}
	return true
}

// do runs a transition under the lock and the resulting notification
// after releasing it.
func (p *Player) do(transition func() func()) {
	p.mu.Lock()
	if p.done || !p.started {
		p.mu.Unlock()
		return
	}
	notify := transition()
	p.mu.Unlock()
	notify()
}

// fire is the body of every trigger. gen identifies the slide entry that
// armed it.
func (p *Player) fire(gen uint64) {
	p.do(func() func() {
		if gen != p.gen {
			return noop
		}
		return p.advanceLocked()
	})
}

func (p *Player) advanceLocked() func() {
	if p.index >= len(p.slides)-1 {
		return p.exitLocked(Finished)
	}
	p.cancelLocked()
	p.index++
	return p.enterLocked()
}

func (p *Player) exitLocked(reason ExitReason) func() {
	p.cancelLocked()
	p.done = true
	if p.onExit == nil {
		return noop
	}
	onExit := p.onExit
	return func() { onExit(reason) }
}

// cancelLocked retires the pending trigger.
func (p *Player) cancelLocked() {
	p.gen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *Player) enterLocked() func() {
	gen := p.gen
	slide := p.slides[p.index]
	frame := Frame{Index: p.index, Total: len(p.slides), Slide: slide}

	if slide.Kind == models.KindVideo {
		frame.Ended = func() { p.fire(gen) }
	} else {
		p.timer = p.clock.AfterFunc(slide.DisplayDuration(), func() { p.fire(gen) })
	}

	if p.onEnter == nil {
		return noop
	}
	onEnter := p.onEnter
	return func() { onEnter(frame) }
}

func noop() {}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
