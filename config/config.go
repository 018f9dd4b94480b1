// Package config holds VibeOS's boot-time configuration: the static IPv4
// setup (spec §6), the boot program path, and platform selection. It is
// yaml.v3-based, grounded on the teacher's own dependency on
// gopkg.in/yaml.v3 for its own config loading.
package config

import (
	"net"

	"gopkg.in/yaml.v3"

	"github.com/vibeos/core/kerr"
	"github.com/vibeos/core/netcore"
)

// Platform selects which HAL collaborator package cmd/vibekernel wires up.
type Platform string

const (
	PlatformQEMUVirt Platform = "qemuvirt"
	PlatformPiZero2W Platform = "pizero2w"
)

// BootProgram is the program Boot launches first, with its documented
// fallback (spec §6: "launch /bin/desktop, fallback /bin/vibesh").
const (
	DefaultBootProgram  = "/bin/desktop"
	FallbackBootProgram = "/bin/vibesh"
)

// ConfigPath is where an overriding config is looked up on the mounted
// FAT32 volume.
const ConfigPath = "/etc/vibeos.yaml"

// Network is the YAML-shaped mirror of netcore.Config (net.IP doesn't
// round-trip through yaml.v3 as a scalar, so the on-disk shape is
// dotted-quad strings, converted to/from netcore.Config at load/save time).
type Network struct {
	IP      string `yaml:"ip"`
	Gateway string `yaml:"gateway"`
	Netmask string `yaml:"netmask"`
	DNS     string `yaml:"dns"`
}

// Config is the full boot-time configuration document.
type Config struct {
	Platform    Platform `yaml:"platform"`
	BootProgram string   `yaml:"boot_program"`
	Network     Network  `yaml:"network"`
}

// Default returns the compiled-in configuration: QEMU virt platform, the
// default IPv4 setup (spec §6: 10.0.2.15/255.255.255.0/10.0.2.2/10.0.2.3),
// and /bin/desktop as the boot program.
func Default() Config {
	d := netcore.DefaultConfig()
	return Config{
		Platform:    PlatformQEMUVirt,
		BootProgram: DefaultBootProgram,
		Network: Network{
			IP:      d.IP.String(),
			Gateway: d.Gateway.String(),
			Netmask: d.Netmask.String(),
			DNS:     d.DNS.String(),
		},
	}
}

// Parse decodes a YAML document into a Config, starting from Default() so
// a partial override document only needs to name the fields it changes.
func Parse(doc []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(doc, &cfg); err != nil {
		return Config{}, kerr.Tagf("CONFIG", kerr.ErrInvalid, "parse %s", ConfigPath)
	}
	return cfg, nil
}

// Marshal encodes cfg back to YAML, for a future "write back defaults"
// tool or for tests round-tripping a loaded config.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// NetcoreConfig converts the YAML-shaped Network back into netcore.Config,
// parsing each dotted-quad field with net.ParseIP.
func (c Config) NetcoreConfig() (netcore.Config, error) {
	ip := net.ParseIP(c.Network.IP)
	gw := net.ParseIP(c.Network.Gateway)
	mask := net.ParseIP(c.Network.Netmask)
	dns := net.ParseIP(c.Network.DNS)
	if ip == nil || gw == nil || mask == nil || dns == nil {
		return netcore.Config{}, kerr.Tagf("CONFIG", kerr.ErrInvalid, "malformed network config")
	}
	return netcore.Config{IP: ip, Gateway: gw, Netmask: mask, DNS: dns}, nil
}
