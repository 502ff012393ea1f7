// Command overview-probe loads one overview of a raster band and prints its size and
// first samples. It is a quick check that a file's pyramid is readable.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"
	"go.uber.org/zap/zapcore"

	"go.ngs.io/rasterwin/internal/catalog"
	"go.ngs.io/rasterwin/internal/logging"
	"go.ngs.io/rasterwin/internal/usecase"
)

const sampleCount = 10

func main() {
	path := flag.String("path", "", "Raster file to probe (required)")
	band := flag.Int("band", 1, "1-based band index")
	level := flag.Int("level", 3, "Overview level")
	driver := flag.String("driver", string(catalog.DriverGDAL), "Raster driver: gdal or netcdf")
	variable := flag.String("variable", "", "NetCDF variable (netcdf driver only)")
	verbose := flag.Bool("v", false, "Log debug output")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "Usage: overview-probe -path FILE [-band N] [-level L] [-driver gdal|netcdf] [-variable NAME]")
		os.Exit(2)
	}

	if err := run(*path, catalog.Driver(*driver), *variable, *band, *level, *verbose); err != nil {
		color.New(color.FgRed, color.Bold).Fprint(os.Stderr, "Error: ")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(path string, driver catalog.Driver, variable string, band, level int, verbose bool) error {
	lvl := zapcore.WarnLevel
	if verbose {
		lvl = zapcore.DebugLevel
	}
	logger := logging.New(logging.Config{Level: lvl, Development: true})
	defer func() { _ = logger.Sync() }()

	if driver == catalog.DriverMemory {
		return fmt.Errorf("driver %q has no files to probe", driver)
	}
	opener, err := catalog.NewOpener(driver, variable, logger)
	if err != nil {
		return err
	}
	svc := usecase.NewService(opener, usecase.WithLogger(logger))

	color.New(color.FgCyan, color.Bold).Printf("Probing %s", path)
	fmt.Printf(" (band %d, overview %d)\n", band, level)

	arr, err := svc.ReadOverview(context.Background(), path, band, level)
	if err != nil {
		return err
	}

	color.New(color.FgGreen, color.Bold).Printf("Success! Loaded %dx%d pixels.\n", arr.Cols, arr.Rows)

	n := min(sampleCount, len(arr.Data))
	dim := color.New(color.FgHiBlack)
	dim.Printf("First %d samples: ", n)
	fmt.Println(arr.Data[:n])
	return nil
}
