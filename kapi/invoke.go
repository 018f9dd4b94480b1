package kapi

import "sync"

// EntryFunc is the Go shape of a loaded program's entry point, the
// `int main(kapi_t *k, int argc, char **argv)` the ELF loader's entry
// address points at. There is no AArch64 execution backend in this tree
// (nothing branches to real machine code); every program under test or
// under the desktop/shell is itself one of these, registered against the
// entry address elfload.Load returned for its image.
type EntryFunc func(k *Table, argc int32, argv []string) int32

// Invoker resolves an entry address to a callable program body and runs
// it. The process substrate calls through this on every exec, so a real
// AArch64 execution backend could implement Invoker by actually branching
// to entry instead of doing a registry lookup.
type Invoker interface {
	Invoke(entry uint64, k *Table, argc int32, argv []string) int32
}

// DirectInvoker is the Invoker used by every platform in this tree: entry
// addresses are registry keys for Go closures standing in for compiled
// programs, installed by whatever loaded the ELF image (tests, or the
// collaborator that embeds the bundled /bin programs).
type DirectInvoker struct {
	mu    sync.Mutex
	funcs map[uint64]EntryFunc
}

// NewDirectInvoker returns an empty DirectInvoker.
func NewDirectInvoker() *DirectInvoker {
	return &DirectInvoker{funcs: make(map[uint64]EntryFunc)}
}

// Register installs fn as the program body for entry, overwriting any
// previous registration at that address.
func (d *DirectInvoker) Register(entry uint64, fn EntryFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.funcs[entry] = fn
}

// Invoke looks up and calls the EntryFunc registered for entry. Calling an
// unregistered address is a substrate misconfiguration (the loader always
// registers before handing back the entry it just loaded), not a runtime
// condition a program can trigger, so it panics rather than returning an
// error code a caller might silently ignore.
func (d *DirectInvoker) Invoke(entry uint64, k *Table, argc int32, argv []string) int32 {
	d.mu.Lock()
	fn, ok := d.funcs[entry]
	d.mu.Unlock()
	if !ok {
		panic("kapi: no program registered at entry address")
	}
	return fn(k, argc, argv)
}
