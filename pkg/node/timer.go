package node

import "time"

// TimerCallback is invoked with the node's current wall time when the
// timer fires.
type TimerCallback func(now time.Time)

// Timer fires a callback during Spin, once after a delay or repeatedly at
// a period. The caller must keep the handle alive to keep the timer armed;
// Close disarms it.
type Timer struct {
	node     *Node
	cb       TimerCallback
	period   time.Duration
	next     time.Duration // monotonic deadline
	periodic bool
	active   bool
}

// NewOneShotTimer arms a timer that fires once after delay. Construction
// cannot fail; on a closed node the timer is inert.
func (n *Node) NewOneShotTimer(delay time.Duration, cb TimerCallback) *Timer {
	return n.newTimer(delay, false, cb)
}

// NewPeriodicTimer arms a timer that fires every period, first after one
// period. Construction cannot fail; on a closed node the timer is inert.
func (n *Node) NewPeriodicTimer(period time.Duration, cb TimerCallback) *Timer {
	return n.newTimer(period, true, cb)
}

func (n *Node) newTimer(d time.Duration, periodic bool, cb TimerCallback) *Timer {
	t := &Timer{node: n, cb: cb, period: d, periodic: periodic}
	if n.closed || cb == nil {
		return t
	}
	t.next = n.clk.Monotonic() + d
	t.active = true
	n.timers[t] = struct{}{}
	return t
}

// IsArmed reports whether the timer will still fire.
func (t *Timer) IsArmed() bool {
	return t.active
}

// StartOneShot re-arms the timer to fire once after delay.
func (t *Timer) StartOneShot(delay time.Duration) {
	t.restart(delay, false)
}

// StartPeriodic re-arms the timer to fire every period.
func (t *Timer) StartPeriodic(period time.Duration) {
	t.restart(period, true)
}

func (t *Timer) restart(d time.Duration, periodic bool) {
	if t.node.closed || t.cb == nil {
		return
	}
	t.period = d
	t.periodic = periodic
	t.next = t.node.clk.Monotonic() + d
	if !t.active {
		t.active = true
		t.node.timers[t] = struct{}{}
	}
}

// Stop disarms the timer. It is safe to call Stop multiple times, also
// from within the timer's own callback.
func (t *Timer) Stop() {
	if !t.active {
		return
	}
	t.active = false
	if !t.node.closed {
		delete(t.node.timers, t)
	}
}

// Close disarms the timer. It is safe to call Close multiple times.
func (t *Timer) Close() error {
	t.Stop()
	return nil
}
