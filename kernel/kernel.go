// Package kernel wires every core component together per the boot
// contract (spec §6): heap init, HAL bring-up, FAT32 mount, network init,
// kapi table population, and the process substrate that launches the boot
// program. Kernel is the one singleton struct spec.md §9 calls for
// ("ownership of cross-component state... is best modeled as a singleton
// held by the kernel, with components taking a borrowed reference"),
// mirrored on the teacher's Chipset, which owns every device and is
// borrowed (pointer-passed) into handlers rather than copied.
package kernel

import (
	"context"
	"log/slog"

	"github.com/vibeos/core/compositor"
	"github.com/vibeos/core/config"
	"github.com/vibeos/core/console"
	"github.com/vibeos/core/elfload"
	"github.com/vibeos/core/fat32"
	"github.com/vibeos/core/hal"
	"github.com/vibeos/core/heap"
	"github.com/vibeos/core/kapi"
	"github.com/vibeos/core/kerr"
	"github.com/vibeos/core/netcore"
)

// HeapSize is the backing region size handed to the allocator at boot.
const HeapSize = 4 << 20

// ProgramRAMBase and ProgramRAMSize describe the flat address space ELF
// images are loaded into (spec §4.3: "no MMU, p_vaddr is physical").
const (
	ProgramRAMBase = 0x40000000
	ProgramRAMSize = 16 << 20
)

// bootDirectories are created on first boot if absent (spec §6:
// "Conventional directories created on first boot").
var bootDirectories = []string{"/bin", "/etc", "/home", "/home/user", "/tmp", "/music"}

// Kernel is the singleton holding every booted component.
type Kernel struct {
	Log *slog.Logger

	Platform *hal.Platform
	Heap     *heap.Heap
	Console  *console.Console
	FS       *fat32.FS
	Net      *netcore.Stack
	Table    *kapi.Table
	Procs    *kapi.Substrate
	Windows  *compositor.Compositor
	Config   config.Config
}

// Boot brings every component up in the order spec §6 specifies and
// returns without running any program; Launch then execs cfg.BootProgram,
// falling back to config.FallbackBootProgram. invoker resolves loaded-program entry
// addresses to callable bodies (see kapi.Invoker) -- there is no AArch64
// execution backend in this tree, so the caller supplies one (tests supply
// a kapi.DirectInvoker with programs pre-registered).
func Boot(platform *hal.Platform, invoker kapi.Invoker, log *slog.Logger) (*Kernel, error) {
	if log == nil {
		log = slog.Default()
	}
	k := &Kernel{Log: log, Platform: platform}

	h, err := heap.New(make([]byte, HeapSize))
	if err != nil {
		return nil, kerr.Tagged("BOOT", err)
	}
	k.Heap = h
	log.Info("heap initialized", "subsystem", "BOOT", "bytes", HeapSize)

	if err := platform.Serial.Init(); err != nil {
		return nil, kerr.Tagged("BOOT", err)
	}

	var fb hal.Framebuffer
	if platform.FB != nil {
		if err := platform.FB.Init(640, 480); err != nil {
			log.Warn("[BOOT] framebuffer init failed, falling back to serial console", "err", err)
		} else {
			fb = platform.FB
		}
	}
	k.Console = console.New(fb, platform.Serial)
	log.Info("console ready", "subsystem", "BOOT", "rows", k.Console.Rows(), "cols", k.Console.Cols())

	if platform.Input != nil {
		if err := platform.Input.Init(); err != nil {
			return nil, kerr.Tagged("BOOT", err)
		}
	}
	if platform.Interrupts != nil {
		platform.Interrupts.EnableAll()
	}
	if platform.Timers != nil {
		if err := platform.Timers.Init(); err != nil {
			return nil, kerr.Tagged("BOOT", err)
		}
	}

	if err := platform.Block.Init(); err != nil {
		return nil, kerr.Tagged("BOOT", err)
	}

	fs, err := fat32.Mount(platform.Block)
	if err != nil {
		return nil, kerr.Tagged("BOOT", err)
	}
	k.FS = fs
	if err := ensureBootDirectories(fs); err != nil {
		return nil, kerr.Tagged("BOOT", err)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		return nil, kerr.Tagged("BOOT", err)
	}
	k.Config = cfg

	netCfg, err := cfg.NetcoreConfig()
	if err != nil {
		return nil, kerr.Tagged("BOOT", err)
	}

	var net *netcore.Stack
	if platform.Net != nil {
		if err := platform.Net.Init(); err != nil {
			return nil, kerr.Tagged("BOOT", err)
		}
		net, err = netcore.New(platform.Net, netCfg)
		if err != nil {
			return nil, kerr.Tagged("BOOT", err)
		}
	}
	k.Net = net

	k.Windows = compositor.New(fb)

	table := kapi.NewTable()
	k.Table = table
	k.installConsole()
	k.installMemory()
	k.installFilesystem()
	k.installNet()
	k.installSysInfo()

	ram := elfload.NewRAM(ProgramRAMBase, ProgramRAMSize)
	k.Procs = kapi.NewSubstrate(fs, h, ram, invoker, table)
	k.Procs.Install()

	log.Info("boot sequence complete", "subsystem", "BOOT")
	return k, nil
}

// ensureBootDirectories creates any of bootDirectories not already
// present, in order (so /home exists before /home/user is attempted).
func ensureBootDirectories(fs *fat32.FS) error {
	for _, dir := range bootDirectories {
		if _, err := fs.Resolve(dir); err == nil {
			continue
		}
		if err := fs.MakeDirectory(dir); err != nil {
			return err
		}
	}
	return nil
}

// Launch execs cfg.BootProgram, falling back to config.FallbackBootProgram
// if the configured program can't be found (spec §6: "launch /bin/desktop
// (fallback: /bin/vibesh)").
func (k *Kernel) Launch(ctx context.Context, argv []string) (int, error) {
	status, err := k.Procs.ExecArgs(ctx, k.Config.BootProgram, argv)
	if err == nil {
		return status, nil
	}
	k.Log.Warn("[BOOT] boot program failed, falling back", "program", k.Config.BootProgram, "err", err)
	return k.Procs.ExecArgs(ctx, config.FallbackBootProgram, argv)
}
