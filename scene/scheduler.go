package scene

import (
	"container/heap"
	"fmt"
)

// Task runs at its due simulation time.
type Task func(due float64) error

type scheduled struct {
	due    float64
	period float64 // > 0 for recurring tasks
	seq    uint64  // FIFO among equal due times
	fn     Task
}

type taskQueue []*scheduled

func (q taskQueue) Len() int { return len(q) }
func (q taskQueue) Less(i, j int) bool {
	if q[i].due != q[j].due {
		return q[i].due < q[j].due
	}
	return q[i].seq < q[j].seq
}
func (q taskQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *taskQueue) Push(x any) { *q = append(*q, x.(*scheduled)) }
func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// Scheduler is a delay queue keyed by simulation time. It is driven
// between steps and is not safe for concurrent use.
type Scheduler struct {
	now   float64
	seq   uint64
	queue taskQueue
}

// Now returns the time of the last Advance.
func (s *Scheduler) Now() float64 { return s.now }

// Len returns the number of pending tasks.
func (s *Scheduler) Len() int { return len(s.queue) }

// After runs fn once, delay seconds from now.
func (s *Scheduler) After(delay float64, fn Task) {
	s.push(&scheduled{due: s.now + max(delay, 0), fn: fn})
}

// Every runs fn each period seconds, starting one period from now.
func (s *Scheduler) Every(period float64, fn Task) error {
	if !(period > 0) {
		return fmt.Errorf("scheduler: period must be positive, got %v", period)
	}
	s.push(&scheduled{due: s.now + period, period: period, fn: fn})
	return nil
}

func (s *Scheduler) push(t *scheduled) {
	t.seq = s.seq
	s.seq++
	heap.Push(&s.queue, t)
}

// Advance runs every task due at or before now, in due order. A recurring
// task that fell behind runs once per missed period. The first task error
// stops the advance; remaining due tasks stay queued.
func (s *Scheduler) Advance(now float64) error {
	for len(s.queue) > 0 && s.queue[0].due <= now {
		t := heap.Pop(&s.queue).(*scheduled)
		s.now = t.due
		if t.period > 0 {
			t.due += t.period
			s.push(t)
		}
		if err := t.fn(s.now); err != nil {
			return err
		}
	}
	if now > s.now {
		s.now = now
	}
	return nil
}
