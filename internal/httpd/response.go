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

import "time"

// Status codes the core ever emits, per spec.md §4.5.
const (
	StatusOK       = 200
	StatusNotFound = 404
)

// dateFormat renders the day/month/time portion of an RFC 1123 date; the
// "GMT" zone suffix is appended literally below rather than produced via a
// location-name verb, since Go's time package stamps the UTC location "UTC"
// rather than the "GMT" zone name the HTTP Date header convention expects.
const dateFormat = "Mon, 02 Jan 2006 15:04:05"

// buildResponse formats the status-line and mandatory headers of spec.md
// §4.5 directly, with no Content-Length or Content-Type: the connection
// close itself delimits the body.
func buildResponse(status int, now time.Time) []byte {
	switch status {
	case StatusOK:
		return []byte("HTTP/1.0 200 OK\r\nDate: " + now.UTC().Format(dateFormat) + " GMT\r\n\r\n")
	case StatusNotFound:
		return []byte("HTTP/1.0 404 Not Found\r\n\r\n")
	default:
		panic("httpd: unsupported response status")
	}
}
