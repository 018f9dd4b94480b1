// vibekernel boots the core against a real HAL collaborator (qemuvirt or
// pizero2w) on a Linux development host, formatting a fresh in-memory disk
// image on every run since neither collaborator persists storage across
// invocations yet.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/vibeos/core/hal"
	"github.com/vibeos/core/hal/pizero2w"
	"github.com/vibeos/core/hal/qemuvirt"
	"github.com/vibeos/core/kapi"
	"github.com/vibeos/core/kernel"
)

func main() {
	platformName := flag.String("platform", "qemuvirt", "HAL collaborator to boot (qemuvirt|pizero2w)")
	program := flag.String("program", "", "boot program override (default: config's boot_program)")
	debug := flag.Bool("debug", false, "enable debug-level logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	if err := run(*platformName, *program, log); err != nil {
		fmt.Fprintf(os.Stderr, "vibekernel: %v\n", err)
		os.Exit(1)
	}
}

func run(platformName, program string, log *slog.Logger) error {
	var (
		platform *hal.Platform
		closeFn  func() error
		disk     hal.BlockDevice
		sectors  int
		err      error
	)
	switch platformName {
	case "qemuvirt":
		platform, closeFn, err = qemuvirt.New()
		sectors = qemuvirt.DiskSectors
	case "pizero2w":
		platform, closeFn, err = pizero2w.New()
		sectors = pizero2w.DiskSectors
	default:
		return fmt.Errorf("unknown platform %q (want qemuvirt or pizero2w)", platformName)
	}
	if err != nil {
		return fmt.Errorf("bring up %s: %w", platformName, err)
	}
	defer closeFn()
	disk = platform.Block

	bar := progressbar.NewOptions(sectors+3,
		progressbar.OptionSetDescription("formatting FAT32 volume"),
		progressbar.OptionSetWriter(os.Stderr),
	)
	if err := formatFAT32(disk, sectors, bar); err != nil {
		return fmt.Errorf("format disk: %w", err)
	}

	invoker := kapi.NewDirectInvoker()
	k, err := kernel.Boot(platform, invoker, log)
	if err != nil {
		return fmt.Errorf("boot: %w", err)
	}
	if program != "" {
		k.Config.BootProgram = program
	}

	restoreTerm, err := enableRawStdin()
	if err != nil {
		log.Warn("could not enable raw terminal mode", "err", err)
	} else if restoreTerm != nil {
		defer restoreTerm()
	}

	status, err := k.Launch(context.Background(), flag.Args())
	if err != nil {
		return fmt.Errorf("launch: %w", err)
	}
	log.Info("boot program exited", "status", status)
	return nil
}

// enableRawStdin puts the controlling terminal into raw mode when stdin is
// one, returning a restore func; it is a no-op (nil, nil) otherwise, since
// neither collaborator's Serial currently bridges host stdin/stdout -- this
// only reserves the terminal for a future interactive console bridge.
func enableRawStdin() (func(), error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, nil
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return func() { term.Restore(fd, old) }, nil
}
