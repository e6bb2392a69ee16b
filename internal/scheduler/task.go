package scheduler

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/zed/txfib/internal/fibonacci"
)

// Stepper is a resumable computation the loop can advance in slices.
// *fibonacci.Stepper implements it.
type Stepper interface {
	Strategy() fibonacci.Strategy
	N() uint64
	// Step performs at most budget units of work.
	Step(budget int) (done bool, err error)
	Result() fibonacci.Value
	Steps() uint64
	// Release drops every resource the computation holds. It may be called
	// more than once.
	Release()
}

// blocker is implemented by steppers that can stop early while waiting on
// another computation.
type blocker interface {
	Blocked() bool
}

// Status is the lifecycle state of a task. Transitions are one-way:
// Pending → Running → {Completed | Failed | Cancelled}, or Pending →
// Cancelled.
type Status uint32

const (
	Pending Status = iota
	Running
	Completed
	Failed
	Cancelled
)

var statusNames = [...]string{
	Pending:   "pending",
	Running:   "running",
	Completed: "completed",
	Failed:    "failed",
	Cancelled: "cancelled",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", uint32(s))
}

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool { return s >= Completed }

// task is one scheduled computation. Fields without atomics are guarded by
// the loop mutex.
type task struct {
	id      string
	key     string
	st      Stepper
	budget  int
	created time.Time

	handles []*Handle
	live    int   // handles that have not cancelled
	cancel  error // set once every handle has cancelled
	done    bool

	status atomic.Uint32
	ticks  atomic.Uint64
	steps  atomic.Uint64
}

func (t *task) label() string {
	return fmt.Sprintf("%s(%d)", t.st.Strategy(), t.st.N())
}
