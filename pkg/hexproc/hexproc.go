// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package hexproc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tliron/commonlog"

	"nickandperla.net/hexproc/internal/debugger"
	"nickandperla.net/hexproc/internal/diag"
	"nickandperla.net/hexproc/internal/interp"
	"nickandperla.net/hexproc/internal/label"
	"nickandperla.net/hexproc/internal/output"
	"nickandperla.net/hexproc/internal/stdlib"
	"nickandperla.net/hexproc/internal/store"
)

// DefinitionsName is the file name diagnostics use for definitions given
// through WithDefinitions.
const DefinitionsName = "<definitions>"

var log = commonlog.GetLogger("hexproc")

// ErrNoStore is returned by operations that need a label library when the
// runtime has none.
var ErrNoStore = errors.New("no label store configured")

// Runtime is the hexproc interpreter runtime. It runs the first pass over
// one or more sources and emits the result.
type Runtime struct {
	interp      *interp.Interpreter
	diag        *diag.Sink
	store       store.Store
	storeErr    error
	mode        output.Mode
	palette     []int
	errw        io.Writer
	debugger    *debugger.Debugger
	prelude     string
	noPrelude   bool
	definitions []string
	persist     bool
	builtins    *label.Table // labels as left by the prelude
	source      string
}

// New creates a new hexproc runtime with the given options. The prelude,
// stored labels and definitions are loaded in that order. It fails only
// when the label store cannot be opened or read.
func New(opts ...Option) (*Runtime, error) {
	r := &Runtime{
		mode: output.Hex,
		errw: os.Stderr,
	}

	for _, opt := range opts {
		opt(r)
	}
	if r.storeErr != nil {
		return nil, r.storeErr
	}

	r.diag = diag.New(r.errw)
	r.interp = interp.New(interp.WithDiag(r.diag))

	// Load prelude unless disabled
	if !r.noPrelude {
		prelude := r.prelude
		if prelude == "" {
			prelude = DefaultPrelude
		}
		r.load(stdlib.PreludeName, prelude)
	}
	r.builtins = r.interp.Labels().Clone()

	if r.store != nil {
		stored, err := r.store.All()
		if err != nil {
			r.store.Close()
			return nil, fmt.Errorf("loading stored labels: %w", err)
		}
		for name, b := range stored {
			r.interp.Labels().Set(name, b)
		}
		log.Debugf("loaded %d stored labels", len(stored))
	}

	for _, src := range r.definitions {
		r.load(DefinitionsName, src)
	}

	return r, nil
}

func (r *Runtime) load(name, src string) {
	r.diag.SetPosition(name, 1)
	// Reading from a strings.Reader cannot fail.
	_ = r.interp.Load(strings.NewReader(src))
}

// Process runs the first pass over src. name is used in diagnostics. It
// only fails when src cannot be read.
func (r *Runtime) Process(src io.Reader, name string) error {
	r.source = name
	r.diag.SetPosition(name, 1)
	if r.debugger != nil {
		r.interp.SetHook(r.debugger)
		defer r.interp.SetHook(nil)
	}
	return r.interp.Run(src)
}

// ProcessFile runs the first pass over the file at path.
func (r *Runtime) ProcessFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return r.Process(f, path)
}

// Emit runs the second pass, writing everything processed so far to w.
func (r *Runtime) Emit(w io.Writer) error {
	e := output.New(r.interp.Evaluator(), r.diag,
		output.WithMode(r.mode),
		output.WithPalette(r.palette),
	)
	return e.Emit(w, r.interp.Program())
}

// Run processes src, persists labels when persistence is enabled, and
// emits the result to w.
func (r *Runtime) Run(src io.Reader, name string, w io.Writer) error {
	if err := r.Process(src, name); err != nil {
		return err
	}
	if r.persist {
		if err := r.Persist(); err != nil {
			return err
		}
	}
	return r.Emit(w)
}

// Eval evaluates an expression against the current labels. Errors are also
// reported at the current position.
func (r *Runtime) Eval(expr string) (float64, error) {
	return r.interp.Evaluator().Eval(expr)
}

// Labels returns the symbol table.
func (r *Runtime) Labels() *label.Table {
	return r.interp.Labels()
}

// Program returns the result of the first pass so far.
func (r *Runtime) Program() interp.Program {
	return r.interp.Program()
}

// Mode returns the output mode.
func (r *Runtime) Mode() output.Mode {
	return r.mode
}

// Errors returns the number of diagnostics reported so far.
func (r *Runtime) Errors() int {
	return r.diag.Errors()
}

// Persist writes every label that differs from the prelude's to the label
// store.
func (r *Runtime) Persist() error {
	if r.store == nil {
		return ErrNoStore
	}

	n := 0
	var errs []error
	r.interp.Labels().Each(func(name string, b label.Binding) {
		if orig, ok := r.builtins.Lookup(name); ok && orig == b {
			return
		}
		if err := r.store.Put(name, b); err != nil {
			errs = append(errs, fmt.Errorf("persisting %s: %w", name, err))
			return
		}
		n++
	})
	if ms, ok := r.store.(store.MetadataStore); ok && r.source != "" {
		if err := ms.SetMetadata("last_source", r.source); err != nil {
			errs = append(errs, err)
		}
	}
	log.Debugf("persisted %d labels", n)
	return errors.Join(errs...)
}

// Forget removes a label from the label store. The current table is not
// changed.
func (r *Runtime) Forget(name string) error {
	if r.store == nil {
		return ErrNoStore
	}
	return r.store.Delete(name)
}

// History returns the stored versions of a label, newest first. A limit of
// 0 returns every version.
func (r *Runtime) History(name string, limit int) ([]store.VersionEntry, error) {
	hs, ok := r.store.(store.HistoryStore)
	if !ok {
		return nil, ErrNoStore
	}
	return hs.History(name, limit)
}

// Close releases resources.
func (r *Runtime) Close() error {
	if r.store != nil {
		return r.store.Close()
	}
	return nil
}
