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

package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli"

	"github.com/xtaci/httpd/internal/config"
	"github.com/xtaci/httpd/internal/httpd"
	"github.com/xtaci/httpd/internal/logx"
)

// VERSION is populated via build flags when packaging official binaries.
var VERSION = "SELFBUILD"

func main() {
	myApp := cli.NewApp()
	myApp.Name = "httpd"
	myApp.Usage = "single-threaded, event-driven HTTP/1.0 static file and chat broadcast server"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "port, p",
			Usage: "listening port, decimal or /etc/services name (required)",
		},
		cli.StringFlag{
			Name:  "root, r",
			Value: "./htdocs",
			Usage: "document root for static file serving",
		},
		cli.StringFlag{
			Name:  "errors, e",
			Value: "./error_documents",
			Usage: "directory holding 404.html",
		},
		cli.StringFlag{
			Name:  "access-log",
			Value: "./logs/access.log",
			Usage: "path to the access log",
		},
		cli.StringFlag{
			Name:  "error-log",
			Value: "./logs/error.log",
			Usage: "path to the error log",
		},
		cli.StringFlag{
			Name:  "chat-log",
			Value: "./logs/chat.log",
			Usage: "append-only log backing the /broadcast.service chat history",
		},
		cli.StringFlag{
			Name:  "c",
			Usage: "optional JSON configuration file overlaying the flags above",
		},
		cli.StringFlag{
			Name:  "stats-log",
			Usage: "optional path for a periodic connection-count CSV log; the filename is a time.Format layout, e.g. ./logs/stats-20060102.csv",
		},
		cli.IntFlag{
			Name:  "stats-period",
			Value: 60,
			Usage: "seconds between stats log samples",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "append each Connection's correlation id to access/error log lines",
		},
	}

	myApp.Action = func(c *cli.Context) error {
		if !c.IsSet("port") && !c.IsSet("c") {
			color.Red("-p/--port is required")
			os.Exit(1)
		}

		cfg := config.Default()
		cfg.Port = c.String("port")
		cfg.DocumentRoot = c.String("root")
		cfg.ErrorRoot = c.String("errors")
		cfg.AccessLog = c.String("access-log")
		cfg.ErrorLog = c.String("error-log")

		if path := c.String("c"); path != "" {
			// Only JSON configuration files are supported at the moment.
			if err := config.ParseJSON(&cfg, path); err != nil {
				color.Red("%+v", err)
				os.Exit(1)
			}
		}

		port, err := config.ResolvePort(cfg.Port)
		checkError(err)

		access, err := logx.Open(cfg.AccessLog)
		checkError(err)
		defer access.Close()

		errlog, err := logx.Open(cfg.ErrorLog)
		checkError(err)
		defer errlog.Close()

		listenFD, err := httpd.Listen(port)
		checkError(err)

		chatLog := c.String("chat-log")
		srv, err := httpd.NewServer(listenFD, cfg.DocumentRoot, cfg.ErrorRoot, chatLog, access, errlog)
		checkError(err)

		if statsLog := c.String("stats-log"); statsLog != "" {
			srv.EnableStats(statsLog, time.Duration(c.Int("stats-period"))*time.Second)
		}
		if c.Bool("debug") {
			srv.EnableDebug()
		}

		go sigHandler(srv)

		log.Printf("httpd listening on port %d, root=%s", port, cfg.DocumentRoot)
		if err := srv.Run(); err != nil {
			srv.Close()
			color.Red("%+v", err)
			os.Exit(1)
		}
		srv.Close()
		return nil
	}

	if err := myApp.Run(os.Args); err != nil {
		color.Red("%+v", err)
		os.Exit(1)
	}
}

// sigHandler asks the event loop to stop on SIGINT/SIGTERM, the cancellation
// channel spec.md §9 substitutes for an atexit-style global handler.
func sigHandler(srv *httpd.Server) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	srv.Shutdown()
}

func checkError(err error) {
	if err != nil {
		color.Red("%+v", err)
		os.Exit(1)
	}
}
