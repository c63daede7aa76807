// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"golang.org/x/term"

	"nickandperla.net/hexproc/internal/debugger"
)

// startDebugger creates a debugger that single-steps from the first line
// and stops again on SIGINT. While the prompt is active SIGINT has its
// default effect, so Ctrl-C there ends the program. Commands come from the
// terminal when the program itself is read from standard input. The
// returned function releases the terminal and the signal handler.
func startDebugger(inputIsStdin bool) (*debugger.Debugger, func()) {
	var commands io.Reader = os.Stdin
	var tty *os.File
	if inputIsStdin {
		var err error
		tty, err = os.Open("/dev/tty")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Debugger has no terminal to read commands from: %v\n", err)
			commands = strings.NewReader("")
		} else {
			commands = tty
		}
	}

	sigs := make(chan os.Signal, 1)
	relay := func(active bool) {
		if active {
			signal.Reset(os.Interrupt)
		} else {
			signal.Notify(sigs, os.Interrupt)
		}
	}

	d := debugger.New(commands, os.Stderr,
		debugger.WithStep(true),
		debugger.WithBoldPrompt(term.IsTerminal(int(os.Stderr.Fd()))),
		debugger.WithPromptNotify(relay),
	)

	signal.Notify(sigs, os.Interrupt)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-sigs:
				d.Interrupt()
			case <-done:
				return
			}
		}
	}()

	return d, func() {
		signal.Stop(sigs)
		close(done)
		if tty != nil {
			tty.Close()
		}
	}
}
