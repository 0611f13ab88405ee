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

package httpd

import "os"

// State is one point in a Connection's FSM, per spec.md §3.
type State int

const (
	StateReceivingRequest State = iota
	StateSendingResponse
	StateChatReceiver
	StateChatSender
)

func (s State) String() string {
	switch s {
	case StateReceivingRequest:
		return "receiving-request"
	case StateSendingResponse:
		return "sending-response"
	case StateChatReceiver:
		return "chat-receiver"
	case StateChatSender:
		return "chat-sender"
	default:
		return "unknown"
	}
}

const (
	// BufferSize is the initial per-connection buffer allocation.
	BufferSize = 1024
	// MaxBuffer is the hard ceiling a buffer may grow to before the
	// connection holding it is closed.
	MaxBuffer = 1 << 20
	// MaxURLSize bounds the GET target captured by the parser.
	MaxURLSize = 256
)

// Connection is one live client: its sockets, optional file handle, dynamic
// receive/send buffer, and its slot in both the Registry and the Readiness
// Table. Connection is mutated only by the single event-loop goroutine.
type Connection struct {
	id    uint64
	state State

	fd   int
	file *os.File

	buf    []byte // len(buf) == cap(buf) always; length/cursor track occupancy
	cursor int
	length int

	bodyPtr       int
	contentLength int

	readinessIndex int

	prev, next *Connection
}

func newConnection(id uint64, fd int) *Connection {
	return &Connection{
		id:    id,
		fd:    fd,
		state: StateReceivingRequest,
		buf:   make([]byte, BufferSize),
	}
}

// SetReadinessIndex implements netpoll.Owner.
func (c *Connection) SetReadinessIndex(i int) { c.readinessIndex = i }

// growBuffer doubles the buffer capacity (capped at MaxBuffer), zeroing the
// new half. It reports false when the buffer is already at MaxBuffer, in
// which case the caller must close the connection per spec.md §3/§4.3.
func (c *Connection) growBuffer() bool {
	if cap(c.buf) >= MaxBuffer {
		return false
	}
	newCap := cap(c.buf) * 2
	if newCap > MaxBuffer {
		newCap = MaxBuffer
	}
	grown := make([]byte, newCap)
	copy(grown, c.buf[:c.length])
	c.buf = grown
	return true
}

// resetSendBuffer loads a freshly built response (or replay) into the
// buffer at offset 0 and rearms cursor/length for the Send FSM. Per
// spec.md §4.5, exceeding the current capacity is an aborting condition;
// the two status lines this core ever builds always fit BUFFER_SIZE.
func (c *Connection) resetSendBuffer(data []byte) {
	if len(data) > cap(c.buf) {
		panic("httpd: formatted response exceeds connection buffer capacity")
	}
	copy(c.buf[:cap(c.buf)], data)
	c.length = len(data)
	c.cursor = 0
}
