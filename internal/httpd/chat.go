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

import (
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/xtaci/httpd/internal/netpoll"
)

// checkChatComplete implements spec.md §4.7: invoked for a ChatSender whose
// buffer may now hold the full body. Completion is body_ptr+content_length
// <= length — exactly the arithmetic spec.md names.
func (s *Server) checkChatComplete(c *Connection) {
	if c.bodyPtr+c.contentLength > c.length {
		return
	}

	body := append([]byte(nil), c.buf[c.bodyPtr:c.bodyPtr+c.contentLength]...)
	if err := s.appendChatLog(body); err != nil {
		s.errlog.Logf("chat log append: %v%s", err, s.debugTag(c))
	}
	s.closeConnection(c)
	s.broadcastToReceivers()
}

// appendChatLog opens the log for append, writes exactly the message body,
// and closes it — no file-handle caching, so every subsequent reader's open
// observes the write, per spec.md §4.7 step 1.
func (s *Server) appendChatLog(body []byte) error {
	f, err := os.OpenFile(s.chatLog, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "open chat log for append")
	}
	defer f.Close()

	if _, err := f.Write(body); err != nil {
		return errors.Wrap(err, "write chat log")
	}
	return nil
}

// broadcastToReceivers walks the Registry in insertion order (spec.md §5's
// fairness guarantee) and rearms every parked ChatReceiver to stream the
// entire log from byte 0 — the replay that makes the protocol
// self-synchronizing for newly-arriving subscribers.
func (s *Server) broadcastToReceivers() {
	for c := s.reg.head; c != nil; c = c.next {
		if c.state != StateChatReceiver {
			continue
		}

		f, err := os.Open(s.chatLog)
		if err != nil {
			s.errlog.Logf("chat log open for replay: %v%s", err, s.debugTag(c))
			continue
		}

		c.resetSendBuffer(buildResponse(StatusOK, time.Now()))
		c.file = f
		c.state = StateSendingResponse
		s.table.SetEvents(c.readinessIndex, netpoll.Write)
	}
}
