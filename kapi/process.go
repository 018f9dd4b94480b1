package kapi

import (
	"context"
	"path"
	"sync"
	"unsafe"

	"github.com/vibeos/core/elfload"
	"github.com/vibeos/core/fat32"
	"github.com/vibeos/core/heap"
	"github.com/vibeos/core/kerr"
	"github.com/vibeos/core/kstring"
)

// ProcessNameMax and ProcessStackSize mirror process.h's PROCESS_NAME_MAX
// and PROCESS_STACK_SIZE.
const (
	ProcessNameMax   = 32
	ProcessStackSize = 0x4000
)

// ProcessRecord is the Go rendering of process_t (spec §3): a single-slot
// cooperative process record. VibeOS never runs two processes at once and
// never reuses a pid.
type ProcessRecord struct {
	PID          int
	Name         string
	Entry        uint64
	StackBase    uint64
	StackPointer uint64
	ExitStatus   int
	Running      bool
}

// processExitPanic unwinds the Go call stack back to the Exec frame that
// started the current process, standing in for process_exit's `while
// (1) {}` halt-and-never-return (process.c leaves a TODO for "proper early
// exit"): Go can't suspend a goroutine mid-function and resume the
// scheduler loop the way the firmware's context switch does, so exit
// instead panics with this sentinel and Exec's deferred recover turns it
// into the same (status, nil) return a normal `main` return produces.
type processExitPanic struct{ status int }

// Substrate is the process/exec substrate: it resolves a program from the
// filesystem, ELF-loads it into ram, allocates it a stack out of heap, and
// runs it through invoker. table is the one kapi.Table instance every
// program receives, per spec §5's "kapi table is a process-wide singleton"
// resource rule.
type Substrate struct {
	mu      sync.Mutex
	fs      *fat32.FS
	heap    *heap.Heap
	ram     elfload.AddressSpace
	invoker Invoker
	table   *Table

	nextPID int
	current *ProcessRecord
}

// NewSubstrate wires a process substrate over its collaborators. table is
// expected to already have its non-process families installed by the
// kernel's boot sequence; Substrate installs Table.Process itself via
// Install.
func NewSubstrate(fs *fat32.FS, h *heap.Heap, ram elfload.AddressSpace, invoker Invoker, table *Table) *Substrate {
	return &Substrate{fs: fs, heap: h, ram: ram, invoker: invoker, table: table, nextPID: 1}
}

// Install wires this substrate's Exec/Spawn/Yield/Exit into table.Process,
// matching kapi_init's process family wiring. kapi_t's fields carry no
// context.Context -- that's a Go-only addition to the outer Substrate API
// kernel.Launch and tests call, not part of the C-shaped ABI every program
// sees through the table -- so each closure here runs with
// context.Background(), equivalent to "no deadline, not cancellable from
// inside the program that's running".
func (s *Substrate) Install() {
	s.table.Process = Process{
		Exit:      s.Exit,
		Exec:      func(path string) (int, error) { return s.ExecArgs(context.Background(), path, nil) },
		ExecArgs:  func(path string, argv []string) (int, error) { return s.ExecArgs(context.Background(), path, argv) },
		Yield:     s.Yield,
		Spawn:     func(path string) (int, error) { return s.SpawnArgs(context.Background(), path, nil) },
		SpawnArgs: func(path string, argv []string) (int, error) { return s.SpawnArgs(context.Background(), path, argv) },
	}
}

// Current returns the currently-running process record, or nil if none.
func (s *Substrate) Current() *ProcessRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Substrate) allocPID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	pid := s.nextPID
	s.nextPID++
	return pid
}

func (s *Substrate) swapCurrent(p *ProcessRecord) *ProcessRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.current
	s.current = p
	return prev
}

// ExecArgs implements spec §4.6's six exec steps: locate the program via
// the filesystem (rejecting a missing path, a directory, or an empty
// file), read the whole image into heap, ELF-load it into ram, populate
// the process record, allocate and 16-byte-align a stack, and run the
// entry point to completion, recording its exit status. ctx is honored
// only at the boundary: a process already cancelled or past its deadline
// is rejected before any resolve/load/stack work begins. Once the entry
// point is running there's no preemption point to cancel it mid-flight,
// matching the cooperative, non-preemptive scheduling spec §5 describes.
func (s *Substrate) ExecArgs(ctx context.Context, p string, argv []string) (int, error) {
	_, status, err := s.exec(ctx, p, argv)
	return status, err
}

// exec is ExecArgs' implementation, additionally returning the pid of the
// process that ran so SpawnArgs can report it (exit status and pid are
// different numbers and spawn needs the latter).
func (s *Substrate) exec(ctx context.Context, p string, argv []string) (pid, status int, err error) {
	if err := ctx.Err(); err != nil {
		return -1, -1, kerr.Tagged("PROC", err)
	}

	entry, err := s.fs.Resolve(p)
	if err != nil {
		return -1, -1, kerr.Tagf("PROC", kerr.ErrNotFound, "exec %s", p)
	}
	if entry.IsDirectory() {
		return -1, -1, kerr.Tagf("PROC", kerr.ErrIsADir, "exec %s", p)
	}
	if entry.Size == 0 {
		return -1, -1, kerr.Tagf("PROC", kerr.ErrInvalid, "exec %s: empty file", p)
	}

	image := s.heap.Allocate(int(entry.Size))
	if image == nil {
		return -1, -1, kerr.Tagf("PROC", kerr.ErrOutOfSpace, "exec %s: no memory for image", p)
	}
	defer s.heap.Release(image)

	n, err := s.fs.ReadFile(p, image)
	if err != nil {
		return -1, -1, err
	}
	image = image[:n]

	entryAddr, err := elfload.Load(image, s.ram)
	if err != nil {
		return -1, -1, kerr.Tagged("PROC", err)
	}

	stack := s.heap.Allocate(ProcessStackSize)
	if stack == nil {
		return -1, -1, kerr.Tagf("PROC", kerr.ErrOutOfSpace, "exec %s: no memory for stack", p)
	}
	defer s.heap.Release(stack)

	stackBase := addressOf(stack)
	sp := (stackBase + uint64(len(stack))) &^ 0xF // stack grows down, 16-byte aligned

	proc := &ProcessRecord{
		PID:          s.allocPID(),
		Name:         procName(p),
		Entry:        entryAddr,
		StackBase:    stackBase,
		StackPointer: sp,
		Running:      true,
	}

	prev := s.swapCurrent(proc)
	defer s.swapCurrent(prev)

	status = s.run(proc, argv)
	proc.ExitStatus = status
	proc.Running = false
	return proc.PID, status, nil
}

// run calls the program's entry point and recovers a processExitPanic from
// Exit into a normal return, per the panic/recover rendering documented on
// processExitPanic. A panic of any other kind propagates: VibeOS has no
// general fault-isolation model between a misbehaving program and the
// kernel any more than the original does.
func (s *Substrate) run(proc *ProcessRecord, argv []string) (status int) {
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(processExitPanic); ok {
				status = pe.status
				return
			}
			panic(r)
		}
	}()
	return int(s.invoker.Invoke(proc.Entry, s.table, int32(len(argv)), argv))
}

// SpawnArgs starts path the same way ExecArgs does but is named separately
// to match kapi_spawn/process_create+process_start's distinct call shape;
// this substrate is strictly single-slot and cooperative (spec §5), so
// spawning here runs the program to completion before returning, same as
// exec -- a real preemptive scheduler is out of scope.
func (s *Substrate) SpawnArgs(ctx context.Context, p string, argv []string) (int, error) {
	pid, _, err := s.exec(ctx, p, argv)
	if err != nil {
		return -1, err
	}
	return pid, nil
}

// Yield is a no-op placeholder for the cooperative scheduler's
// reschedule point (spec §5): with a single runnable process there is
// nothing else to switch to.
func (s *Substrate) Yield() {}

// Exit ends the current process with status, per spec §4.6. See
// processExitPanic for why this panics instead of returning.
func (s *Substrate) Exit(status int) {
	panic(processExitPanic{status: status})
}

func procName(p string) string {
	buf := make([]byte, ProcessNameMax)
	n := kstring.CopyTruncate(buf, path.Base(p))
	return kstring.CStr(buf[:n])
}

// addressOf returns buf's backing address as a uint64, standing in for the
// physical address a real allocator would hand back; the hosted build has
// no MMU and addresses are just Go slice backing pointers, the same
// unsafe-pointer-identity technique the heap package's own tests use.
func addressOf(buf []byte) uint64 {
	if len(buf) == 0 {
		return 0
	}
	return uint64(uintptr(unsafe.Pointer(&buf[0])))
}
