package kernel

import (
	"encoding/binary"
	"net"

	"github.com/vibeos/core/console"
	"github.com/vibeos/core/fat32"
	"github.com/vibeos/core/kapi"
	"github.com/vibeos/core/kerr"
)

// ipFromUint32 and uint32FromIP convert between kapi's wire-style uint32 IPv4
// representation and net.IP, using the same big-endian byte order netcore
// uses for every other on-wire field (see netcore/arp.go's ipTo4).
func ipFromUint32(v uint32) net.IP {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return net.IP(b)
}

func uint32FromIP(ip net.IP) uint32 {
	v4 := ip.To4()
	if v4 == nil {
		return 0
	}
	return binary.BigEndian.Uint32(v4)
}

// installConsole wires kapi.Table.Console and kapi.Table.Keyboard to this
// kernel's console.Console + HAL input, per kapi_init's console/keyboard
// family wiring. hal.Input.GetKey is consuming (there is no peek), so a
// one-key lookahead buffer is kept here to give HasKey its non-consuming
// semantics without changing the HAL contract.
func (k *Kernel) installConsole() {
	c := k.Console
	var (
		pending   int
		hasPending bool
	)
	fill := func() bool {
		if hasPending {
			return true
		}
		if k.Platform.Input == nil {
			return false
		}
		code, ok := k.Platform.Input.GetKey()
		if !ok {
			return false
		}
		pending, hasPending = code, true
		return true
	}
	take := func() (int32, bool) {
		if !fill() {
			return 0, false
		}
		hasPending = false
		return int32(pending), true
	}

	k.Table.Console = kapi.Console{
		Putc: c.PutChar,
		Puts: c.PutString,
		UARTPuts: func(s string) {
			for i := 0; i < len(s); i++ {
				k.Platform.Serial.SendByte(s[i])
			}
		},
		Getc:      take,
		SetColor:  func(fg, bg uint32) { c.SetColor(console.Color(fg&0xFFFFFF), console.Color(bg&0xFFFFFF)) },
		Clear:     c.Clear,
		SetCursor: c.SetCursor,
		Rows:      c.Rows,
		Cols:      c.Cols,
	}
	k.Table.Keyboard = kapi.Keyboard{
		HasKey: fill,
	}
}

// installMemory wires kapi.Table.Memory directly to the boot heap.
func (k *Kernel) installMemory() {
	k.Table.Memory = kapi.Memory{
		Malloc: k.Heap.Allocate,
		Free:   k.Heap.Release,
	}
}

// fsNode is the opaque handle kapi.Filesystem hands back to programs;
// fat32's own API is path-based (spec'd that way), so a node just
// remembers the path and the Entry resolved for it at open time.
type fsNode struct {
	path  string
	entry *fat32.Entry
}

// installFilesystem wires kapi.Table.Filesystem to fs, matching
// kapi_init's vfs_* wrapper functions one for one. fat32 itself never
// supports removing a directory (fat32.Delete explicitly refuses one), so
// DeleteRecursive is left unwired rather than faked into something that
// silently leaves directory entries behind; see DESIGN.md.
func (k *Kernel) installFilesystem() {
	fs := k.FS
	var cwd = "/"

	open := func(path string) (any, bool) {
		e, err := fs.Resolve(path)
		if err != nil {
			return nil, false
		}
		return &fsNode{path: path, entry: e}, true
	}
	read := func(node any, buf []byte, offset int) (int, error) {
		n, ok := node.(*fsNode)
		if !ok {
			return 0, kerr.Tagf("FS", kerr.ErrInvalid, "bad node")
		}
		full := make([]byte, n.entry.Size)
		got, err := fs.ReadFile(n.path, full)
		if err != nil {
			return 0, err
		}
		full = full[:got]
		if offset >= len(full) {
			return 0, nil
		}
		return copy(buf, full[offset:]), nil
	}
	write := func(node any, buf []byte) (int, error) {
		n, ok := node.(*fsNode)
		if !ok {
			return 0, kerr.Tagf("FS", kerr.ErrInvalid, "bad node")
		}
		if err := fs.WriteFile(n.path, buf); err != nil {
			return 0, err
		}
		return len(buf), nil
	}
	isDir := func(node any) bool {
		n, ok := node.(*fsNode)
		return ok && n.entry.IsDirectory()
	}
	fileSize := func(node any) int {
		n, ok := node.(*fsNode)
		if !ok {
			return 0
		}
		return int(n.entry.Size)
	}
	create := func(path string) (any, error) {
		if err := fs.CreateFile(path); err != nil {
			return nil, err
		}
		e, err := fs.Resolve(path)
		if err != nil {
			return nil, err
		}
		return &fsNode{path: path, entry: e}, nil
	}
	mkdir := func(path string) (any, error) {
		if err := fs.MakeDirectory(path); err != nil {
			return nil, err
		}
		e, err := fs.Resolve(path)
		if err != nil {
			return nil, err
		}
		return &fsNode{path: path, entry: e}, nil
	}
	readdir := func(dir any, index int) (string, byte, bool) {
		n, ok := dir.(*fsNode)
		if !ok {
			return "", 0, false
		}
		entries, err := fs.List(n.path)
		if err != nil || index < 0 || index >= len(entries) {
			return "", 0, false
		}
		e := entries[index]
		return e.Name, e.Attr, true
	}

	k.Table.Filesystem = kapi.Filesystem{
		Open:     open,
		Read:     read,
		Write:    write,
		IsDir:    isDir,
		FileSize: fileSize,
		Create:   create,
		Mkdir:    mkdir,
		Delete:   fs.Delete,
		Rename:   fs.Rename,
		Readdir:  readdir,
		SetCwd: func(path string) error {
			e, err := fs.Resolve(path)
			if err != nil {
				return err
			}
			if !e.IsDirectory() {
				return kerr.Tagf("FS", kerr.ErrNotADir, "%s", path)
			}
			cwd = path
			return nil
		},
		GetCwd: func() string { return cwd },
	}
}

// installNet wires kapi.Table.Net to k.Net, when a network device was
// brought up at boot. TCP/TLS fields stay nil -- VibeOS never implements
// a socket layer (non-goal).
func (k *Kernel) installNet() {
	if k.Net == nil {
		return
	}
	net := k.Net
	timers := k.Platform.Timers
	k.Table.Net = kapi.Net{
		Ping: func(ip uint32, seq uint16, timeoutMs uint32) (bool, uint32, error) {
			ok, rtt, err := net.Ping(timers, ipFromUint32(ip), seq, uint64(timeoutMs)/10)
			return ok, uint32(rtt * 10), err
		},
		Poll:   net.Poll,
		GetIP:  func() uint32 { return uint32FromIP(net.IP()) },
		GetMAC: net.MAC,
		DNSResolve: func(hostname string) (uint32, error) {
			return 0, kerr.Tagf("NET", kerr.ErrUnsupported, "dns_resolve: no resolver collaborator installed")
		},
	}
}

// installSysInfo wires the uptime/memory-accounting family.
func (k *Kernel) installSysInfo() {
	timers := k.Platform.Timers
	k.Table.SysInfo = kapi.SysInfo{
		UptimeTicks: func() uint64 {
			if timers == nil {
				return 0
			}
			return timers.Ticks()
		},
		MemFree: k.Heap.LargestFree,
	}
}
