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

package config

import (
	"encoding/json"
	"net"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Config for httpd.
type Config struct {
	Port         string `json:"port"`
	DocumentRoot string `json:"root"`
	ErrorRoot    string `json:"errors"`
	AccessLog    string `json:"access_log"`
	ErrorLog     string `json:"error_log"`
}

// Default returns a Config populated with the document-root and log-path
// defaults described in spec.md §6.
func Default() Config {
	return Config{
		DocumentRoot: "./htdocs",
		ErrorRoot:    "./error_documents",
		AccessLog:    "./logs/access.log",
		ErrorLog:     "./logs/error.log",
	}
}

// ParseJSON overlays cfg with the contents of the JSON file at path, exactly
// the "flags first, JSON overrides" pattern kcptun uses for its own -c flag.
func ParseJSON(cfg *Config, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open config file")
	}
	defer file.Close()

	return errors.Wrap(json.NewDecoder(file).Decode(cfg), "decode config file")
}

// ResolvePort implements spec.md §6: -p accepts either a decimal port
// (1..65535) or a service name resolvable via the system services database
// with protocol "tcp".
//
// Open question carried forward from spec.md §9: when port is numeric, the
// historical C implementation stores it into sin_port already in network
// byte order (via htons), while a resolved /etc/services entry arrives from
// getservbyname also already in network order, and the original source never
// re-swaps either value before the raw assignment. net.LookupPort and
// unix.SockaddrInet4.Port both expect host byte order and handle the
// network/host conversion internally, so this Go implementation has no
// equivalent byte-order pitfall to reproduce — it is documented here only
// because spec.md flags it as an open question about the source program,
// not a behavior this implementation must match bit-for-bit.
func ResolvePort(arg string) (int, error) {
	if arg == "" {
		return 0, errors.New("no port specified")
	}
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > 65535 {
			return 0, errors.Errorf("port %d out of range 1..65535", n)
		}
		return n, nil
	}
	port, err := net.LookupPort("tcp", arg)
	if err != nil {
		return 0, errors.Wrapf(err, "resolve service %q", arg)
	}
	return port, nil
}
