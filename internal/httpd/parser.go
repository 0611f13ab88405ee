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
	"bytes"
	"strconv"

	"github.com/pkg/errors"
)

var (
	crlfcrlf             = []byte("\r\n\r\n")
	crlf                 = []byte("\r\n")
	contentLengthPrefix  = []byte("Content-Length: ")
	broadcastServicePath = []byte("POST /broadcast.service")

	// ErrInvalidRequest replaces the source's fatal "invalid GET format"
	// abort (spec.md §4.4/§9): this implementation closes just the
	// offending connection instead of the whole process.
	ErrInvalidRequest = errors.New("invalid request: no GET target and not a broadcast POST")

	// ErrNegativeContentLength rejects a Content-Length header that parses
	// as a valid base-10 integer but is negative. Nothing downstream
	// (checkChatComplete's body-slice arithmetic) tolerates a negative
	// contentLength, so it is refused here rather than reaching the FSM.
	ErrNegativeContentLength = errors.New("invalid request: negative Content-Length")

	// ErrContentLengthTooLarge rejects a Content-Length bigger than
	// MaxBuffer can ever hold. A body this size can never complete (the
	// connection's buffer tops out at MaxBuffer per spec.md §3/§4.3), and
	// an astronomically large value risks overflowing the bodyPtr+
	// contentLength arithmetic in checkChatComplete, which would wrap to
	// a negative sum and hit the same out-of-range slice panic a negative
	// header does.
	ErrContentLengthTooLarge = errors.New("invalid request: Content-Length exceeds MaxBuffer")
)

// parseResult is the parser's output, per spec.md §4.4.
type parseResult struct {
	isPost        bool
	contentLength int
	url           string
	bodyOffset    int
}

// parseRequest scans buf (which must already contain "\r\n\r\n") the way
// spec.md §4.4 describes: non-destructively, tokenizing the header section
// by "\r\n" and inspecting only the first three bytes of each line for GET,
// and a fixed prefix for POST /broadcast.service and Content-Length.
func parseRequest(buf []byte) (parseResult, error) {
	idx := bytes.Index(buf, crlfcrlf)
	if idx < 0 {
		return parseResult{}, errors.New("parseRequest called without a complete header section")
	}

	var res parseResult
	res.bodyOffset = idx + len(crlfcrlf)

	gotURL := false
	clCaptured := false
	for _, line := range bytes.Split(buf[:idx], crlf) {
		switch {
		case len(line) >= 3 && string(line[:3]) == "GET":
			fields := bytes.Fields(line)
			if len(fields) >= 2 {
				u := fields[1]
				if len(u) > MaxURLSize-1 {
					u = u[:MaxURLSize-1]
				}
				res.url = string(u)
				gotURL = true
			}
		case bytes.HasPrefix(line, broadcastServicePath):
			res.isPost = true
		case res.isPost && !clCaptured && bytes.HasPrefix(line, contentLengthPrefix):
			n, err := strconv.Atoi(string(line[len(contentLengthPrefix):]))
			if err != nil {
				continue
			}
			if n < 0 {
				return parseResult{}, ErrNegativeContentLength
			}
			if n > MaxBuffer {
				return parseResult{}, ErrContentLengthTooLarge
			}
			res.contentLength = n
			clCaptured = true
		}
	}

	if !res.isPost && !gotURL {
		return parseResult{}, ErrInvalidRequest
	}
	return res, nil
}
