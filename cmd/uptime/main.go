// Command uptime computes device uptime once and prints the table, optionally
// writing the CSV export next to it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"
	_ "time/tzdata"

	"fleetuptime/internal/adapters/csvexport"
	"fleetuptime/internal/bootstrap"
	"fleetuptime/internal/config"
	"fleetuptime/internal/core/domain"
	"fleetuptime/internal/core/ports"
	"fleetuptime/pkg/logger"
	"fleetuptime/pkg/utils"

	"go.uber.org/zap"
)

type options struct {
	configPath string
	preset     domain.Preset
	rawStart   string
	rawStop    string
	start      time.Time
	stop       time.Time
	csvPath    string
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	loc, err := cfg.Location()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := opts.resolveDates(loc); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	// The table goes to stdout, so keep logs quiet unless asked for.
	if os.Getenv("LOG_LEVEL") == "" {
		cfg.Log.Level = "error"
	}
	log := logger.New(logger.Options{Console: os.Stderr, Level: cfg.Log.Level, File: cfg.Log.File})
	defer log.Sync() //nolint:errcheck

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	telemetry, err := bootstrap.OpenTelemetry(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open telemetry store", zap.Error(err))
	}
	defer telemetry.Close()

	inventory, err := bootstrap.LoadInventory(cfg, log)
	if err != nil {
		log.Fatal("failed to load device inventory", zap.Error(err))
	}
	svc, err := bootstrap.NewUptimeService(cfg, telemetry.Store, inventory, nil, log)
	if err != nil {
		log.Fatal("failed to build uptime service", zap.Error(err))
	}

	if err := run(ctx, svc, opts, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// parseFlags reads the command line. Range dates are kept raw until the
// config is loaded; see resolveDates.
func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("uptime", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	var preset, start, stop string
	fs.StringVar(&opts.configPath, "config", "config.yaml", "path to the YAML config `file`")
	fs.StringVar(&preset, "preset", string(domain.PresetTrailingWeek), "range, trailing-week or last-monday-week")
	fs.StringVar(&start, "start", "", "range start, YYYY-MM-DD or RFC3339 (preset=range)")
	fs.StringVar(&stop, "stop", "", "range stop, exclusive, YYYY-MM-DD or RFC3339 (preset=range)")
	fs.StringVar(&opts.csvPath, "csv", "", "also write the CSV export to this `path`; a directory gets the default file name")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	p, err := domain.ParsePreset(preset)
	if err != nil {
		return opts, err
	}
	opts.preset = p
	if p != domain.PresetRange {
		return opts, nil
	}

	if start == "" || stop == "" {
		return opts, errors.New("-start and -stop are required with -preset range")
	}
	opts.rawStart, opts.rawStop = start, stop
	return opts, nil
}

// resolveDates parses -start and -stop in loc, the configured
// telemetry.timezone, so the CLI and the server agree on calendar dates.
func (o *options) resolveDates(loc *time.Location) error {
	if o.preset != domain.PresetRange {
		return nil
	}
	var err error
	if o.start, err = utils.ParseDateOrTime(o.rawStart, loc); err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}
	if o.stop, err = utils.ParseDateOrTime(o.rawStop, loc); err != nil {
		return fmt.Errorf("invalid -stop: %w", err)
	}
	return nil
}

func run(ctx context.Context, svc ports.UptimeService, opts options, stdout io.Writer) error {
	res, err := svc.Resolve(ctx, opts.preset, opts.start, opts.stop)
	if err != nil {
		return err
	}

	if err := printTable(stdout, res); err != nil {
		return err
	}

	if opts.csvPath == "" {
		return nil
	}
	path := opts.csvPath
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, csvexport.FileName(res.Range))
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := csvexport.Write(f, res); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func printTable(w io.Writer, res *domain.UptimeResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "device_id\tuptime_readable\n")
	for _, row := range res.Rows {
		fmt.Fprintf(tw, "%s\t%s\n", row.DeviceID, row.UptimeReadable)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(res.MissingDevices) > 0 {
		fmt.Fprintf(w, "\nno telemetry from %d device(s): %v\n", len(res.MissingDevices), res.MissingDevices)
	}
	return nil
}
