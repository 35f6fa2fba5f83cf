// Command srouter is an IPv4 software router: it binds a set of configured
// network interfaces, forwards datagrams between them according to a static
// route table, answers ARP and ICMP echo requests addressed to itself, and
// exports Prometheus metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/plaidnet/srouter/arpcache"
	"github.com/plaidnet/srouter/config"
	"github.com/plaidnet/srouter/driver"
	"github.com/plaidnet/srouter/gwprobe"
	"github.com/plaidnet/srouter/iface"
	"github.com/plaidnet/srouter/router"
)

const sweepInterval = 1 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "srouter",
		Short: "IPv4 software router",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, verbose)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "/etc/srouter/srouter.toml", "path to configuration file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

func run(configPath string, verbose bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	log := newLogger(cfg.Log)

	inventory, err := cfg.BuildInventory()
	if err != nil {
		return fmt.Errorf("building interface inventory: %w", err)
	}
	routes, err := cfg.BuildRouteTable()
	if err != nil {
		return fmt.Errorf("building route table: %w", err)
	}

	bridges, err := openBridges(inventory)
	if err != nil {
		return err
	}
	defer func() {
		for _, br := range bridges {
			br.Close()
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ctxState := &iface.Context{
		Interfaces: inventory,
		Routes:     routes,
		ARP:        arpcache.New(),
	}
	sender := &bridgeSender{bridges: bridges}
	pipeline := router.New(ctxState, sender, log)

	if cfg.Metrics.Enabled {
		go serveMetrics(ctx, cfg.Metrics.BindAddress, log)
	}

	go pipeline.RunSweepWorker(ctx, sweepInterval)

	if cfg.GatewayProbe.Enabled {
		prober := &gwprobe.Prober{
			Routes:     routes,
			Log:        log,
			Interval:   cfg.GatewayProbe.Interval,
			Timeout:    cfg.GatewayProbe.Timeout,
			Privileged: true,
		}
		go prober.Run(ctx)
	}

	for name, br := range bridges {
		go readLoop(ctx, pipeline, name, br, log)
	}

	log.Info("srouter started", "interfaces", len(bridges), "routes", routes.Len())
	<-ctx.Done()
	log.Info("srouter shutting down")
	return nil
}

func openBridges(inventory *iface.Inventory) (map[string]*driver.Bridge, error) {
	bridges := make(map[string]*driver.Bridge, len(inventory.All()))
	for _, i := range inventory.All() {
		br, err := driver.Open(i.Name)
		if err != nil {
			for _, opened := range bridges {
				opened.Close()
			}
			return nil, fmt.Errorf("opening interface %s: %w", i.Name, err)
		}
		bridges[i.Name] = br
	}
	return bridges, nil
}

func readLoop(ctx context.Context, p *router.Pipeline, name string, br *driver.Bridge, log *slog.Logger) {
	buf := make([]byte, 65536)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, err := br.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("interface read failed", "iface", name, "err", err)
			continue
		}
		p.HandleFrame(name, buf[:n])
	}
}

// bridgeSender adapts the open driver.Bridge set to router.Sender.
type bridgeSender struct {
	bridges map[string]*driver.Bridge
}

func (s *bridgeSender) SendFrame(ifaceName string, frame []byte) error {
	br, ok := s.bridges[ifaceName]
	if !ok {
		return fmt.Errorf("no bridge open for interface %s", ifaceName)
	}
	_, err := br.Write(frame)
	return err
}

func serveMetrics(ctx context.Context, addr string, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	log.Info("metrics server listening", "address", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
		log.Error("metrics server failed", "err", err)
	}
}

// newLogger builds the router's structured logger: a colorized console
// handler when stderr is a terminal and the config asks for "console"
// output, falling back to JSON otherwise (piped output, log aggregators,
// or an explicit "json" format).
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	if cfg.Format == "console" && term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.RFC3339,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
