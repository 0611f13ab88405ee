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

// Package logx implements the two append-only text logs the core requires:
// access and error. Both support one operation — append one formatted line
// with a timestamp prefix — and are only ever touched from the single
// event-loop goroutine, so no locking is needed.
package logx

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// timeFormat matches spec.md §6: "[dd/Mon/YYYY HH:MM:SS]" local time.
const timeFormat = "[02/Jan/2006 15:04:05]"

// Logger is one append-only log file.
type Logger struct {
	file *os.File
	std  *log.Logger
}

// Open creates the parent directory if needed and opens path for append,
// mirroring xtaci/kcptun's own os.OpenFile(os.O_RDWR|os.O_CREATE|os.O_APPEND)
// log-redirection idiom in server/main.go.
func Open(path string) (*Logger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create log directory %q", dir)
		}
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open log file %q", path)
	}
	return &Logger{file: f, std: log.New(f, "", 0)}, nil
}

// Logf appends one "[timestamp] <message>" line.
func (l *Logger) Logf(format string, args ...any) {
	l.std.Println(fmt.Sprintf("%s %s", time.Now().Format(timeFormat), fmt.Sprintf(format, args...)))
}

// Close closes the underlying file.
func (l *Logger) Close() error {
	return l.file.Close()
}
