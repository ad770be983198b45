package unread

import (
	"sync"
	"time"
)

// Notifier shows a notice and dismisses it once after the notice's delay.
// Triggering again while a notice is up restarts the timer; it never polls.
type Notifier struct {
	mu      sync.Mutex
	timer   *time.Timer
	seq     uint64
	show    func(Notice)
	dismiss func()
}

// NewNotifier creates a notifier with the given display callbacks. Either may
// be nil.
func NewNotifier(show func(Notice), dismiss func()) *Notifier {
	if show == nil {
		show = func(Notice) {}
	}
	if dismiss == nil {
		dismiss = func() {}
	}
	return &Notifier{show: show, dismiss: dismiss}
}

// Trigger displays n if it has anything to show and schedules its dismissal.
func (nf *Notifier) Trigger(n Notice) bool {
	if !n.Show() {
		return false
	}
	delay := n.DismissAfter
	if delay <= 0 {
		delay = DefaultDismissAfter
	}

	nf.mu.Lock()
	if nf.timer != nil {
		nf.timer.Stop()
	}
	nf.seq++
	seq := nf.seq
	nf.timer = time.AfterFunc(delay, func() { nf.fire(seq) })
	nf.mu.Unlock()

	nf.show(n)
	return true
}

func (nf *Notifier) fire(seq uint64) {
	nf.mu.Lock()
	if seq != nf.seq {
		nf.mu.Unlock()
		return
	}
	nf.timer = nil
	nf.mu.Unlock()
	nf.dismiss()
}

// Active reports whether a notice is waiting to be dismissed.
func (nf *Notifier) Active() bool {
	nf.mu.Lock()
	defer nf.mu.Unlock()
	return nf.timer != nil
}

// Stop cancels a pending dismissal without calling dismiss.
func (nf *Notifier) Stop() {
	nf.mu.Lock()
	defer nf.mu.Unlock()
	if nf.timer != nil {
		nf.timer.Stop()
		nf.timer = nil
	}
	nf.seq++
}
