package conc

import (
	"container/heap"
	"log/slog"
	"sync"
	"time"
)

// DefaultTimerWakeupFreq bounds how long the timer loop sleeps when nothing
// is due.
const DefaultTimerWakeupFreq = 30 * time.Second

// TimerFunc is a scheduled action. Periodic entries re-arm only while the
// action keeps returning true.
type TimerFunc func() bool

type timerItem struct {
	when   time.Time
	what   TimerFunc
	period time.Duration
}

type timerHeap []timerItem

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].when.Before(h[j].when) }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x interface{}) { *h = append(*h, x.(timerItem)) }
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// TimerService runs scheduled closures from a min-heap, driven by a
// supervised AsyncWorker. Actions execute outside the schedule lock.
type TimerService struct {
	wakeupFreq time.Duration

	mu       sync.Mutex
	schedule timerHeap
	kick     chan struct{}

	worker *AsyncWorker
}

// NewTimerService creates and starts the service. A non-positive wakeupFreq
// selects DefaultTimerWakeupFreq.
func NewTimerService(wakeupFreq time.Duration) *TimerService {
	if wakeupFreq <= 0 {
		wakeupFreq = DefaultTimerWakeupFreq
	}
	ts := &TimerService{
		wakeupFreq: wakeupFreq,
		kick:       make(chan struct{}, 1),
	}
	ts.worker = NewAsyncWorker(ts.tick, WithRetries(10), WithName("timer-service"))
	ts.worker.Start()
	return ts
}

// Schedule runs what at the given instant. A past instant runs on the next
// wakeup, which is triggered immediately.
func (ts *TimerService) Schedule(when time.Time, what TimerFunc) {
	now := time.Now()
	period := when.Sub(now)
	if period < 0 {
		period = 0
	}
	ts.push(timerItem{when: when, what: what, period: period}, now)
}

// ScheduleAfter runs what after d; if the action returns true it re-arms
// every d.
func (ts *TimerService) ScheduleAfter(d time.Duration, what TimerFunc) {
	now := time.Now()
	ts.push(timerItem{when: now.Add(d), what: what, period: d}, now)
}

func (ts *TimerService) push(it timerItem, now time.Time) {
	maxWait := now.Add(ts.wakeupFreq)
	ts.mu.Lock()
	heap.Push(&ts.schedule, it)
	ts.mu.Unlock()
	// only notify when the worker would otherwise sleep past the new item
	if it.when.Before(maxWait) {
		select {
		case ts.kick <- struct{}{}:
		default:
		}
	}
}

// TakeError surfaces the driving worker's captured error, at most once.
func (ts *TimerService) TakeError() error {
	return ts.worker.TakeError()
}

// Close stops the driving worker and joins it.
func (ts *TimerService) Close() {
	select {
	case ts.kick <- struct{}{}:
	default:
	}
	ts.worker.Stop()
}

// tick is one worker iteration: drain due items, run them outside the lock,
// re-arm periodics, then sleep until the next deadline.
func (ts *TimerService) tick() (bool, error) {
	now := time.Now()
	maxWait := now.Add(ts.wakeupFreq)
	var batch []timerItem

	ts.mu.Lock()
	for len(ts.schedule) > 0 {
		first := ts.schedule[0]
		if first.when.Before(now) {
			batch = append(batch, first)
			heap.Pop(&ts.schedule)
			continue
		}
		if first.when.Before(maxWait) {
			maxWait = first.when
		}
		break
	}
	ts.mu.Unlock()

	if len(batch) == 0 {
		timer := time.NewTimer(time.Until(maxWait))
		select {
		case <-timer.C:
		case <-ts.kick:
		case <-ts.worker.stopCh:
		}
		timer.Stop()
		return true, nil
	}

	for _, it := range batch {
		if ts.runOne(it) && it.period > 0 {
			it.when = it.when.Add(it.period)
			ts.mu.Lock()
			heap.Push(&ts.schedule, it)
			ts.mu.Unlock()
			// no notification: this loop handles it next iteration
		}
	}
	return true, nil
}

// runOne executes a single action; a panicking action is logged, swallowed
// and not re-armed.
func (ts *TimerService) runOne(it timerItem) (res bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic during timed execution", "panic", r)
			res = false
		}
	}()
	return it.what()
}
