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
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// writeStats appends one CSV row of connection counters to statsPath,
// adapted from xtaci/kcptun's std.SnmpLogger: same open-or-create-then-
// header-if-empty shape, but sampling this Server's own Registry and
// Table instead of kcp.DefaultSnmp, and called inline from Run between
// poll iterations instead of from an independent time.Ticker goroutine —
// the readiness table and registry are only ever safe to read from the
// event-loop goroutine itself.
func (s *Server) writeStats() {
	logdir, logfile := filepath.Split(s.statsPath)
	path := logdir + time.Now().Format(logfile)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		s.errlog.Logf("stats log: %v", err)
		return
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if stat, err := f.Stat(); err == nil && stat.Size() == 0 {
		if err := w.Write([]string{"Unix", "Connections", "TableSlots"}); err != nil {
			s.errlog.Logf("stats log header: %v", err)
		}
	}
	row := []string{
		fmt.Sprint(time.Now().Unix()),
		fmt.Sprint(s.reg.count),
		fmt.Sprint(s.table.Len()),
	}
	if err := w.Write(row); err != nil {
		s.errlog.Logf("stats log row: %v", err)
	}
	w.Flush()
}
