// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package netpoll implements the readiness table consumed by the event loop:
// a dense, resizable vector of (descriptor, interest, revents) slots polled
// in one blocking syscall. Slot 0 is always the listening socket.
package netpoll

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Interest masks, aliased from the underlying poll(2) bits so callers never
// import golang.org/x/sys/unix themselves.
const (
	Read  = int16(unix.POLLIN)
	Write = int16(unix.POLLOUT)
	None  = int16(0)

	// ErrHup is OR'd into revents by the kernel regardless of the interest
	// mask requested; slots signaling it without Read should be treated as
	// a dead connection rather than dispatched to Receive/Send.
	ErrHup = int16(unix.POLLERR | unix.POLLHUP | unix.POLLNVAL)
)

const (
	// overAlloc is the slack added on top of the active count when the
	// table must grow.
	overAlloc = 8
	// downsizeThreshold is how much unused slack triggers a shrink.
	downsizeThreshold = 15
)

// Owner receives notice of its slot moving during a swap-remove so the
// Connection holding readiness_index never has to be located by scanning
// the registry (the O(n) scan spec.md §9 calls out as improvable).
type Owner interface {
	SetReadinessIndex(i int)
}

// Table is the readiness table of spec.md §3/§4.8: fds[0] is always the
// listening socket (no backing Owner); fds[1:] mirror one slot per live
// Connection. len(fds) is "next_free"; cap(fds) is "capacity".
type Table struct {
	fds    []unix.PollFd
	owners []Owner
}

// New creates a table with the listening socket pre-installed at slot 0.
func New(listenFD int) *Table {
	t := &Table{
		fds:    make([]unix.PollFd, 1, 1+3+overAlloc),
		owners: make([]Owner, 1, 1+3+overAlloc),
	}
	t.fds[0] = unix.PollFd{Fd: int32(listenFD), Events: Read}
	return t
}

// Len reports next_free: the number of occupied slots, including slot 0.
func (t *Table) Len() int { return len(t.fds) }

// Add appends a new slot for owner with the given descriptor and interest
// mask, growing the table first if it would otherwise overflow. It returns
// the new slot's index and also threads it back through owner so the
// Connection always knows its own readiness_index.
func (t *Table) Add(fd int, events int16, owner Owner) int {
	t.growIfNeeded()
	t.fds = append(t.fds, unix.PollFd{Fd: int32(fd), Events: events})
	t.owners = append(t.owners, owner)
	idx := len(t.fds) - 1
	owner.SetReadinessIndex(idx)
	return idx
}

// growIfNeeded reallocates to active+3+OVERALLOC slots once the table is
// full, per spec.md §4.8.
func (t *Table) growIfNeeded() {
	active := len(t.fds)
	if active < cap(t.fds) {
		return
	}
	newCap := active + 3 + overAlloc
	fds := make([]unix.PollFd, active, newCap)
	owners := make([]Owner, active, newCap)
	copy(fds, t.fds)
	copy(owners, t.owners)
	t.fds, t.owners = fds, owners
}

// shrinkIfSlack reallocates down symmetrically once free slack exceeds
// DOWNSIZE_THRESHOLD, per spec.md §4.8.
func (t *Table) shrinkIfSlack() {
	active := len(t.fds)
	if active+2+downsizeThreshold >= cap(t.fds) {
		return
	}
	newCap := active + 2 + downsizeThreshold
	fds := make([]unix.PollFd, active, newCap)
	owners := make([]Owner, active, newCap)
	copy(fds, t.fds)
	copy(owners, t.owners)
	t.fds, t.owners = fds, owners
}

// SetEvents updates the interest mask for slot i, e.g. when a Connection's
// FSM transitions between read- and write-interest, or parks with None.
func (t *Table) SetEvents(i int, events int16) {
	t.fds[i].Events = events
}

// Revents returns the events signaled on slot i by the last Wait.
func (t *Table) Revents(i int) int16 {
	return t.fds[i].Revents
}

// Remove swap-removes slot i: the last slot is copied over it (unless i is
// already last), the displaced owner's readiness_index is corrected, and
// the table shrinks if warranted. Slot 0 (the listener) must never be
// removed by a caller.
func (t *Table) Remove(i int) {
	last := len(t.fds) - 1
	if i != last {
		t.fds[i] = t.fds[last]
		t.owners[i] = t.owners[last]
		t.owners[i].SetReadinessIndex(i)
	}
	t.fds = t.fds[:last]
	t.owners = t.owners[:last]
	t.shrinkIfSlack()
}

// Wait blocks on poll(2) across the whole table until at least one slot is
// ready, the timeout elapses (timeoutMillis < 0 waits forever), or a fatal
// syscall error occurs. EINTR is retried transparently, never surfaced.
func (t *Table) Wait(timeoutMillis int) (int, error) {
	for {
		n, err := unix.Poll(t.fds, timeoutMillis)
		if err == nil {
			return n, nil
		}
		if err == unix.EINTR {
			continue
		}
		return 0, errors.Wrap(err, "poll")
	}
}
