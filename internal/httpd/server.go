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

// Package httpd implements the single-threaded, event-driven connection
// core: a Server owning a readiness Table and a Registry of Connections,
// serving static files over HTTP/1.0 and a long-poll chat broadcast on
// /broadcast.service.
package httpd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/xtaci/httpd/internal/logx"
	"github.com/xtaci/httpd/internal/netpoll"
)

// pollTimeoutMillis bounds how long Wait blocks between checks of the
// shutdown channel; it is not part of the protocol, only of graceful exit.
const pollTimeoutMillis = 1000

// Server owns everything spec.md's re-architecture notes (§9) ask to replace
// global mutable state with: the listener, the readiness table, the
// connection registry, and both log handles, passed around explicitly
// instead of living in package-level variables.
type Server struct {
	listenFD int
	table    *netpoll.Table
	reg      *registry
	nextID   uint64

	docRoot string
	errRoot string
	chatLog string

	access *logx.Logger
	errlog *logx.Logger

	shutdown chan struct{}

	statsPath     string
	statsInterval time.Duration
	lastStats     time.Time

	debug bool
}

// EnableStats turns on the periodic connection-count CSV log adapted from
// xtaci/kcptun's std.SnmpLogger. Must be called before Run.
func (s *Server) EnableStats(path string, interval time.Duration) {
	s.statsPath = path
	s.statsInterval = interval
}

// EnableDebug turns on per-connection id correlation in access/error log
// lines (Connection.id, assigned once at accept time).
func (s *Server) EnableDebug() {
	s.debug = true
}

// debugTag formats the trailing " conn=N" log suffix when debug tracing is
// on, and is a no-op string otherwise.
func (s *Server) debugTag(c *Connection) string {
	if !s.debug {
		return ""
	}
	return fmt.Sprintf(" conn=%d", c.id)
}

// NewServer wires a Server around an already-listening descriptor (see
// Listen). chatLogPath's parent directory is created eagerly so the first
// publish never races a missing ./logs directory.
func NewServer(listenFD int, docRoot, errRoot, chatLogPath string, access, errlog *logx.Logger) (*Server, error) {
	if dir := filepath.Dir(chatLogPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create chat log directory")
		}
	}
	return &Server{
		listenFD: listenFD,
		table:    netpoll.New(listenFD),
		reg:      &registry{},
		docRoot:  docRoot,
		errRoot:  errRoot,
		chatLog:  chatLogPath,
		access:   access,
		errlog:   errlog,
		shutdown: make(chan struct{}),
	}, nil
}

// Shutdown asks Run to return after its current iteration. Safe to call
// once; it is the cancellation channel spec.md §9 asks for in place of an
// atexit-style global handler.
func (s *Server) Shutdown() {
	close(s.shutdown)
}

// Close tears down the listener and every live connection. Call after Run
// has returned.
func (s *Server) Close() {
	unix.Close(s.listenFD)
	for c := s.reg.head; c != nil; {
		next := c.next
		unix.Close(c.fd)
		if c.file != nil {
			c.file.Close()
		}
		c = next
	}
}

// Run is the event loop of spec.md §4.1. It never returns except on
// Shutdown or a fatal poll(2) error; EINTR is already transparent inside
// Table.Wait.
func (s *Server) Run() error {
	for {
		select {
		case <-s.shutdown:
			return nil
		default:
		}

		n, err := s.table.Wait(pollTimeoutMillis)
		if err != nil {
			return err
		}

		if s.statsPath != "" && time.Since(s.lastStats) >= s.statsInterval {
			s.writeStats()
			s.lastStats = time.Now()
		}

		if n == 0 {
			continue
		}

		if s.table.Revents(0)&netpoll.Read != 0 {
			s.accept()
		}

		// Snapshot next before dispatch: handlers may dispose the node
		// we're currently visiting.
		c := s.reg.head
		for c != nil {
			next := c.next
			s.dispatch(c)
			c = next
		}
	}
}

func (s *Server) dispatch(c *Connection) {
	rev := s.table.Revents(c.readinessIndex)
	if rev == 0 {
		return
	}
	if rev&netpoll.ErrHup != 0 && rev&netpoll.Read == 0 {
		s.closeConnection(c)
		return
	}
	switch {
	case rev&netpoll.Read != 0:
		s.receive(c)
	case rev&netpoll.Write != 0 && c.state == StateSendingResponse:
		s.send(c)
	}
}

// accept handles readiness of slot 0: accept exactly one connection, per
// spec.md §4.2. A per-call accept failure is logged and not fatal to the
// process; the listener stays armed for the next iteration.
func (s *Server) accept() {
	fd, _, err := unix.Accept(s.listenFD)
	if err != nil {
		if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
			s.errlog.Logf("accept: %v", err)
		}
		return
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		s.errlog.Logf("setnonblock: %v", err)
		return
	}

	s.nextID++
	c := newConnection(s.nextID, fd)
	s.table.Add(fd, netpoll.Read, c)
	s.reg.pushBack(c)
}

// receive implements spec.md §4.3. Preconditions: c.state is
// StateReceivingRequest or StateChatSender.
func (s *Server) receive(c *Connection) {
	if c.length == cap(c.buf) {
		if !c.growBuffer() {
			s.closeConnection(c)
			return
		}
	}

	n, err := unix.Read(c.fd, c.buf[c.length:cap(c.buf)])
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return
		}
		// spec.md §9: downgrade the source's process-abort on read
		// errors to closing just this connection.
		s.closeConnection(c)
		return
	}
	if n == 0 {
		s.closeConnection(c) // peer closed cleanly
		return
	}
	c.length += n

	if c.state == StateReceivingRequest {
		if bytes.Contains(c.buf[:c.length], crlfcrlf) {
			s.handleParsedRequest(c)
			return
		}
	}
	if c.state == StateChatSender {
		s.checkChatComplete(c)
	}
}

// handleParsedRequest routes a fully-headered request to static file
// serving or the chat FSM transitions of spec.md §4.3 step 4.
func (s *Server) handleParsedRequest(c *Connection) {
	res, err := parseRequest(c.buf[:c.length])
	if err != nil {
		// spec.md §9: the source aborts the process on a malformed GET
		// line; this implementation closes only the offending connection.
		s.errlog.Logf("bad request: %v%s", err, s.debugTag(c))
		s.closeConnection(c)
		return
	}

	switch {
	case res.isPost && res.contentLength == 0:
		c.state = StateChatReceiver
		c.bodyPtr = res.bodyOffset
		c.contentLength = 0
		s.table.SetEvents(c.readinessIndex, netpoll.None)
	case res.isPost:
		c.state = StateChatSender
		c.bodyPtr = res.bodyOffset
		c.contentLength = res.contentLength
		s.checkChatComplete(c)
	default:
		s.serveFile(c, res.url)
	}
}

// serveFile opens {docRoot}/{url} and arms the connection to stream it, or
// falls back to the 404 document, per spec.md §4.3/§6.
func (s *Server) serveFile(c *Connection, url string) {
	var f *os.File
	var err error
	if pathEscapes(url) {
		err = os.ErrNotExist
	} else {
		f, err = os.Open(filepath.Join(s.docRoot, url))
	}

	status := StatusOK
	if err != nil {
		status = StatusNotFound
		s.errlog.Logf("GET %s 404 Not Found%s", url, s.debugTag(c))
		f, err = os.Open(filepath.Join(s.errRoot, "404.html"))
		if err != nil {
			s.closeConnection(c)
			return
		}
	} else {
		s.access.Logf("GET %s 200 OK%s", url, s.debugTag(c))
	}

	c.resetSendBuffer(buildResponse(status, time.Now()))
	c.file = f
	c.state = StateSendingResponse
	s.table.SetEvents(c.readinessIndex, netpoll.Write)
}

// pathEscapes rejects ".." segments, resolving the Open Question spec.md
// §9 raises about directory traversal: reject instead of silently allowing
// the concatenated path to climb out of docRoot.
func pathEscapes(url string) bool {
	for _, seg := range strings.Split(url, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// send implements spec.md §4.6.
func (s *Server) send(c *Connection) {
	n, err := unix.Write(c.fd, c.buf[c.cursor:c.length])
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return
		}
		s.closeConnection(c)
		return
	}
	if n == 0 {
		s.closeConnection(c)
		return
	}
	c.cursor += n
	if c.cursor < c.length {
		return // partial write; stay armed for the next writable event
	}

	if c.file == nil {
		s.closeConnection(c)
		return
	}

	n, rerr := c.file.Read(c.buf[:cap(c.buf)-1])
	if n > 0 {
		c.cursor = 0
		c.length = n
		return
	}
	if rerr != nil && rerr != io.EOF {
		s.errlog.Logf("file read: %v%s", rerr, s.debugTag(c))
	}
	s.closeConnection(c)
}

// closeConnection implements the destruction path of spec.md §3: both
// descriptors closed, the node unlinked from the Registry, and its slot
// swap-removed from the Readiness Table.
func (s *Server) closeConnection(c *Connection) {
	unix.Close(c.fd)
	if c.file != nil {
		c.file.Close()
		c.file = nil
	}
	s.reg.remove(c)
	s.table.Remove(c.readinessIndex)
}
