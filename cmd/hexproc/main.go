// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Command hexproc turns hexproc source into binary or hex output.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"golang.org/x/term"

	"nickandperla.net/hexproc/internal/config"
	"nickandperla.net/hexproc/pkg/hexproc"
)

var version = "dev"

const usage = `Usage: hexproc [OPTION...] [FILE]
    -v              Print program version and exit
    -h              Print this help message and exit
    -b              Output binary data
    -B              Force output binary data (even when output is a TTY)
    -c, -color      Output colored hex
    -x              Output plain hex
    -d              Enable debugger
    -D NAME=EXPR    Define a label before reading input (repeatable)
    -config FILE    Read configuration from FILE
    -dump-config    Print the effective configuration and exit
    -db FILE        Label library database
    -persist        Store labels in the label library after reading input
    -history NAME   Print the stored versions of a label and exit
    -forget NAME    Remove a label from the label library and exit
    -verbose N      Log verbosity
`

// defines collects repeated -D flags.
type defines []string

func (d *defines) String() string { return strings.Join(*d, ", ") }

func (d *defines) Set(s string) error {
	if !strings.Contains(s, "=") {
		return fmt.Errorf("expected NAME=EXPR, got %q", s)
	}
	*d = append(*d, s)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("hexproc", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		showVersion = fs.Bool("v", false, "")
		showHelp    = fs.Bool("h", false, "")
		binary      = fs.Bool("b", false, "")
		forceBinary = fs.Bool("B", false, "")
		color       = fs.Bool("c", false, "")
		plain       = fs.Bool("x", false, "")
		debug       = fs.Bool("d", false, "")
		configPath  = fs.String("config", "", "")
		dumpConfig  = fs.Bool("dump-config", false, "")
		dbPath      = fs.String("db", "", "")
		persist     = fs.Bool("persist", false, "")
		history     = fs.String("history", "", "")
		forget      = fs.String("forget", "", "")
		verbose     = fs.Int("verbose", 0, "")
		defs        defines
	)
	fs.BoolVar(color, "color", false, "")
	fs.Var(&defs, "D", "")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		fmt.Fprint(os.Stderr, usage)
		return int(syscall.EINVAL)
	}
	if *showHelp {
		fmt.Fprint(os.Stderr, usage)
		return 0
	}
	if *showVersion {
		fmt.Printf("Hexproc %s\n", version)
		return 0
	}
	if fs.NArg() > 1 {
		fmt.Fprintf(os.Stderr, "Too many input files: %s\n", strings.Join(fs.Args(), " "))
		return int(syscall.EINVAL)
	}

	cfg, err := config.Find(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["verbose"] {
		cfg.Log.Verbosity = *verbose
	}
	if set["db"] {
		cfg.Store.Path = *dbPath
	}
	if *persist {
		cfg.Store.Persist = true
	}
	commonlog.Configure(cfg.Log.Verbosity, nil)

	if *dumpConfig {
		if err := cfg.Dump(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	// Build options
	mode := outputMode(cfg, *binary, *forceBinary, *color, *plain)
	opts := []hexproc.Option{
		hexproc.WithOutputMode(mode),
		hexproc.WithPalette(cfg.Output.Palette),
	}
	if cfg.Store.Path != "" {
		opts = append(opts, hexproc.WithSQLiteStore(cfg.Store.Path))
	} else if cfg.Store.Persist || *history != "" || *forget != "" {
		fmt.Fprintln(os.Stderr, "No label library configured, use '-db'")
		return 1
	}
	opts = append(opts, hexproc.WithPersist(cfg.Store.Persist))
	if d := cfg.Definitions(); d != "" {
		opts = append(opts, hexproc.WithDefinitions(d))
	}
	if len(defs) > 0 {
		opts = append(opts, hexproc.WithDefinitions(strings.Join(defs, "\n")))
	}

	// Open input
	input, name := os.Stdin, "<stdin>"
	if fs.NArg() == 1 && *history == "" && *forget == "" {
		name = fs.Arg(0)
		f, err := os.Open(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Couldn't open file %q (%v)\n", name, err)
			return exitCode(err)
		}
		defer f.Close()
		input = f
	}

	if *debug {
		d, stop := startDebugger(input == os.Stdin)
		defer stop()
		opts = append(opts, hexproc.WithDebugger(d))
	}

	runtime, err := hexproc.New(opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening label library: %v\n", err)
		return 1
	}
	defer runtime.Close()

	switch {
	case *history != "":
		return printHistory(runtime, *history)
	case *forget != "":
		if err := runtime.Forget(*forget); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if err := runtime.Run(input, name, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return 0
}

// outputMode picks the output format from the flags, then the config, then
// the terminal.
func outputMode(cfg *config.Config, binary, forceBinary, color, plain bool) hexproc.Mode {
	tty := term.IsTerminal(int(os.Stdout.Fd()))
	switch {
	case forceBinary:
		return hexproc.Binary
	case binary && tty:
		fmt.Fprintln(os.Stderr, "Refusing to write binary data to console, use '-B' to override")
	case binary:
		return hexproc.Binary
	case color:
		return hexproc.ColorHex
	case plain:
		return hexproc.Hex
	}

	mode, ok := cfg.Mode()
	if !ok {
		mode = hexproc.Hex
		if tty {
			mode = hexproc.ColorHex
		}
	}
	if mode == hexproc.ColorHex && cfg.NoColor {
		mode = hexproc.Hex
	}
	return mode
}

func printHistory(runtime *hexproc.Runtime, name string) int {
	entries, err := runtime.History(name, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if len(entries) == 0 {
		fmt.Fprintf(os.Stderr, "No stored versions of %s\n", name)
		return 1
	}
	for _, e := range entries {
		op := ":="
		if e.Binding.IsLazy() {
			op = "="
		}
		fmt.Printf("v%d  %s  %s %s %s\n", e.Version, e.Ts, name, op, e.Binding)
	}
	return 0
}

// exitCode returns the OS error number behind err, or 1.
func exitCode(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) && errno != 0 {
		return int(errno)
	}
	return 1
}
