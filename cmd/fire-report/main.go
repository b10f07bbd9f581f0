// Command fire-report builds one detection snapshot from files on disk and
// prints the aggregate tables: fires per day, fires per 0.5° grid cell, and
// the regions with the most fires.
//
// Usage:
//
//	go run ./cmd/fire-report \
//	  -fires data/SUOMI_VIIRS_C2_USA_contiguous_and_Hawaii_24h.csv \
//	  -regions data/us_states.geojson \
//	  -min-brightness 330 -daynight D -top 5
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"text/tabwriter"

	"github.com/couchcryptid/wildfire-etl/internal/adapter/csvsource"
	"github.com/couchcryptid/wildfire-etl/internal/adapter/geojson"
	parquetadapter "github.com/couchcryptid/wildfire-etl/internal/adapter/parquet"
	"github.com/couchcryptid/wildfire-etl/internal/domain"
	"github.com/couchcryptid/wildfire-etl/internal/observability"
	"github.com/couchcryptid/wildfire-etl/internal/pipeline"
)

type options struct {
	firesPath     string
	regionsPath   string
	parquetDir    string
	minBrightness float64
	dayNight      string
	top           int
	workers       int
	logLevel      string
}

func main() {
	var opts options
	flag.StringVar(&opts.firesPath, "fires", "", "FIRMS active fire CSV (.csv or .csv.gz)")
	flag.StringVar(&opts.regionsPath, "regions", "", "region boundaries GeoJSON (optional)")
	flag.StringVar(&opts.parquetDir, "parquet-dir", "", "also export the tables as Parquet into this directory")
	flag.Float64Var(&opts.minBrightness, "min-brightness", 0, "only count detections at or above this bright_ti4 (K)")
	flag.StringVar(&opts.dayNight, "daynight", "", "only count day (D) or night (N) detections")
	flag.IntVar(&opts.top, "top", 5, "number of regions to list")
	flag.IntVar(&opts.workers, "workers", runtime.NumCPU(), "classification workers")
	flag.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flag.Parse()

	if opts.firesPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	if code := run(context.Background(), opts, observability.NewMetrics(), os.Stdout, os.Stderr); code != 0 {
		os.Exit(code)
	}
}

func run(ctx context.Context, opts options, metrics *observability.Metrics, stdout, stderr io.Writer) int {
	filter := domain.Filter{
		MinBrightness: opts.minBrightness,
		DayNight:      domain.DayNight(strings.ToUpper(opts.dayNight)),
	}
	if filter.DayNight != "" && filter.DayNight != domain.DayNightDay && filter.DayNight != domain.DayNightNight {
		fmt.Fprintf(stderr, "invalid -daynight %q: want D or N\n", opts.dayNight)
		return 2
	}

	logger := observability.NewLogger(opts.logLevel, "text")

	var regions pipeline.RegionSource
	if opts.regionsPath != "" {
		regions = geojson.NewReader(opts.regionsPath, logger)
	}
	var sinks []pipeline.SnapshotSink
	if opts.parquetDir != "" {
		sinks = append(sinks, parquetadapter.NewExporter(opts.parquetDir, logger))
	}

	p := pipeline.New(csvsource.NewReader(opts.firesPath, logger), regions, logger, metrics, opts.workers, sinks...)
	snap, err := p.Refresh(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: %v\n", err)
		return 1
	}

	if err := printReport(stdout, snap, filter, opts.top); err != nil {
		fmt.Fprintf(stderr, "FATAL: %v\n", err)
		return 1
	}
	return 0
}

func printReport(w io.Writer, snap *domain.Snapshot, filter domain.Filter, top int) error {
	sum := snap.Summary(filter)
	fmt.Fprintf(w, "=== Fire Detections: %s ===\n", snap.Source())
	fmt.Fprintf(w, "rows read: %d, rejected: %d, detections: %d (hot: %d, day: %d, night: %d)\n",
		snap.RowsRead(), snap.RejectedCount(), sum.Total, sum.HotCount, sum.DayCount, sum.NightCount)
	if sum.Total > 0 {
		fmt.Fprintf(w, "latest date: %s, brightness: %.1f-%.1f K, mean FRP: %.2f MW\n",
			sum.LatestDate, sum.MinBrightness, sum.MaxBrightness, sum.MeanFRP)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "--- Fires per day ---")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "acq_date\tfire_count\tmin_brightness\tmax_brightness")
	for _, c := range snap.ByDate(filter) {
		fmt.Fprintf(tw, "%s\t%d\t%.1f\t%.1f\n", c.Date, c.Count, c.MinBrightness, c.MaxBrightness)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "--- Fires per grid cell ---")
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "acq_date\tlat_bin\tlon_bin\tfire_count")
	for _, c := range snap.ByDateGrid(filter) {
		fmt.Fprintf(tw, "%s\t%.1f\t%.1f\t%d\n", c.Date, c.LatBin, c.LonBin, c.Count)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "--- Top %d regions ---\n", top)
	counts, err := snap.ByRegion(filter)
	if errors.Is(err, domain.ErrMissingRegions) {
		fmt.Fprintln(w, "(no region boundaries loaded)")
		return nil
	}
	if err != nil {
		return err
	}
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "region_name\tfire_count")
	for _, c := range domain.TopRegions(counts, top) {
		fmt.Fprintf(tw, "%s\t%d\n", c.Region, c.Count)
	}
	return tw.Flush()
}
