// Package config handles TOML configuration parsing and validation for the
// router: its interface inventory and static routing table.
package config

import (
	"fmt"
	"net/netip"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/plaidnet/srouter/iface"
	"github.com/plaidnet/srouter/routetable"
)

// Config is the top-level router configuration.
type Config struct {
	Log          LogConfig          `toml:"log"`
	Metrics      MetricsConfig      `toml:"metrics"`
	GatewayProbe GatewayProbeConfig `toml:"gateway_probe"`
	Interfaces   []InterfaceSpec    `toml:"interface"`
	Routes       []RouteSpec        `toml:"route"`
}

// GatewayProbeConfig controls the background ICMP reachability prober that
// pings each route's next-hop gateway.
type GatewayProbeConfig struct {
	Enabled  bool          `toml:"enabled"`
	Interval time.Duration `toml:"interval"` // default 30s
	Timeout  time.Duration `toml:"timeout"`  // default 2s
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error; default info.
	Format string `toml:"format"` // "console" or "json"; default console.
}

// MetricsConfig controls the Prometheus HTTP listener.
type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	BindAddress string `toml:"bind_address"` // default ":9100"
}

// InterfaceSpec names a driver-bound interface and its IPv4 identity.
type InterfaceSpec struct {
	Name string `toml:"name"`
	MAC  string `toml:"mac"`  // colon-hex, e.g. "02:00:00:00:00:01"
	IPv4 string `toml:"ipv4"` // dotted quad, e.g. "10.0.0.1"
}

// RouteSpec is one static routing-table entry.
type RouteSpec struct {
	Dest     string `toml:"dest"`    // CIDR, e.g. "192.168.1.0/24"
	Gateway  string `toml:"gateway"` // dotted quad, "0.0.0.0" for directly connected
	OutIface string `toml:"out_iface"`
}

// Load reads and parses a TOML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Metrics.BindAddress == "" {
		cfg.Metrics.BindAddress = ":9100"
	}
	if cfg.GatewayProbe.Interval == 0 {
		cfg.GatewayProbe.Interval = 30 * time.Second
	}
	if cfg.GatewayProbe.Timeout == 0 {
		cfg.GatewayProbe.Timeout = 2 * time.Second
	}
}

// BuildInventory parses the configured interfaces into an iface.Inventory.
func (cfg *Config) BuildInventory() (*iface.Inventory, error) {
	ifaces := make([]iface.Interface, 0, len(cfg.Interfaces))
	for _, spec := range cfg.Interfaces {
		mac, err := parseMAC(spec.MAC)
		if err != nil {
			return nil, fmt.Errorf("interface %q: %w", spec.Name, err)
		}
		addr, err := netip.ParseAddr(spec.IPv4)
		if err != nil || !addr.Is4() {
			return nil, fmt.Errorf("interface %q: invalid ipv4 %q", spec.Name, spec.IPv4)
		}
		ifaces = append(ifaces, iface.Interface{
			Name: spec.Name,
			MAC:  mac,
			IPv4: addr.As4(),
		})
	}
	return iface.NewInventory(ifaces), nil
}

// BuildRouteTable parses the configured routes into a routetable.Table.
func (cfg *Config) BuildRouteTable() (*routetable.Table, error) {
	tbl := routetable.New()
	for _, spec := range cfg.Routes {
		prefix, err := netip.ParsePrefix(spec.Dest)
		if err != nil || !prefix.Addr().Is4() {
			return nil, fmt.Errorf("route %q: invalid dest: %w", spec.Dest, err)
		}
		gw, err := netip.ParseAddr(spec.Gateway)
		if err != nil || !gw.Is4() {
			return nil, fmt.Errorf("route %q: invalid gateway %q", spec.Dest, spec.Gateway)
		}
		dest, mask := routetable.ParsePrefix(prefix)
		if err := tbl.Add(routetable.Route{
			Dest:     dest,
			Mask:     mask,
			Gateway:  gw.As4(),
			OutIface: spec.OutIface,
		}); err != nil {
			return nil, fmt.Errorf("route %q: %w", spec.Dest, err)
		}
	}
	return tbl, nil
}

func parseMAC(s string) (mac [6]byte, err error) {
	if len(s) != 17 {
		return mac, fmt.Errorf("invalid MAC %q", s)
	}
	var b [6]byte
	n, err := fmt.Sscanf(s, "%02x:%02x:%02x:%02x:%02x:%02x",
		&b[0], &b[1], &b[2], &b[3], &b[4], &b[5])
	if err != nil || n != 6 {
		return mac, fmt.Errorf("invalid MAC %q", s)
	}
	return b, nil
}
