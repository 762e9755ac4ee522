// Command pg_exporter runs the version-aware PostgreSQL Prometheus exporter
// (spec §6): a "run" subcommand that serves scrapes, and a "configcheck"
// subcommand that validates a configuration file without starting anything,
// grounded on the teacher's cmd/pgscv/main.go flag/signal handling.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dbmetrics/pg_exporter/internal/collector"
	"github.com/dbmetrics/pg_exporter/internal/config"
	"github.com/dbmetrics/pg_exporter/internal/coordinator"
	pgexphttp "github.com/dbmetrics/pg_exporter/internal/http"
	"github.com/dbmetrics/pg_exporter/internal/instance"
	"github.com/dbmetrics/pg_exporter/internal/log"
	"github.com/dbmetrics/pg_exporter/internal/registry"
	"gopkg.in/alecthomas/kingpin.v2"
)

const defaultScrapeTimeout = 10 * time.Second

func main() {
	app := kingpin.New("pg_exporter", "Version-aware PostgreSQL Prometheus exporter.")
	configFile := app.Flag("config", "path to configuration file").Short('c').Default("pg_exporter.yml").String()
	logLevel := app.Flag("log-level", "set log level: debug, info, warn, error").Default("info").Envar("PGE_LOG_LEVEL").String()

	runCmd := app.Command("run", "start the exporter and serve scrapes")
	listenAddr := runCmd.Flag("listen-addr", "override listen_addr from the config file").Short('l').String()
	endpoint := runCmd.Flag("endpoint", "override endpoint from the config file").Short('e').String()

	app.Command("configcheck", "validate the configuration file and exit")

	cmd, err := app.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log.SetLevel(*logLevel)

	cfg, err := config.NewConfig(*configFile)
	if err != nil {
		log.Errorf("load config failed: %s", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Errorf("validate config failed: %s", err)
		os.Exit(1)
	}

	switch cmd {
	case "configcheck":
		log.Infof("config file %s is valid", *configFile)
		os.Exit(0)
	case runCmd.FullCommand():
		if *listenAddr != "" {
			cfg.ListenAddr = *listenAddr
		}
		if *endpoint != "" {
			cfg.Endpoint = *endpoint
		}
		if err := run(cfg); err != nil {
			log.Errorf("exporter exited: %s", err)
			os.Exit(2)
		}
	}
}

// run wires a Registry from the collector catalogue, builds one Worker per
// configured instance, and serves scrapes until a shutdown signal arrives.
func run(cfg *config.Config) error {
	reg := registry.New(collector.All()...)

	workers := make([]*instance.Worker, 0, len(cfg.Instances))
	for name, inst := range cfg.Instances {
		workers = append(workers, instance.New(instance.Settings{
			Name:            name,
			DSN:             inst.DSN,
			ConstLabels:     inst.ConstLabels,
			ExcludeDBNames:  inst.ExcludeDBNames,
			CollectTopQuery: inst.CollectTopQuery,
			CollectTopIndex: inst.CollectTopIndex,
			CollectTopTable: inst.CollectTopTable,
			NoTrackMode:     inst.NoTrackMode,
			Filters:         inst.Filters,
		}, reg))
	}

	coord := coordinator.New(workers, defaultScrapeTimeout)
	server := pgexphttp.NewServer(pgexphttp.ServerConfig{
		Addr:          cfg.ListenAddr,
		Endpoint:      cfg.Endpoint,
		ScrapeTimeout: defaultScrapeTimeout,
	}, coord)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve() }()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
		return nil
	case s := <-sig:
		log.Warnf("received shutdown signal: %s", s)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	for _, w := range workers {
		w.Close()
	}
	return nil
}
