// Command zonereport builds student and principal zone reports from a
// record source and prints them as JSON.
//
// Usage:
//
//	zonereport [-config file] [-records file] student -snapshot N
//	zonereport [-config file] [-records file] principal -snapshots 1,2,3
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/fsscore/zonescore/internal/application"
	"github.com/fsscore/zonescore/internal/domain"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
	exitNoData  = 3
)

// errUsage marks command line mistakes.
var errUsage = errors.New("usage error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "zonereport: %v\n", err)
	}
	os.Exit(exitCode(err))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("zonereport", flag.ContinueOnError)
	global.SetOutput(stderr)
	var (
		configPath  = global.String("config", "", "Path to the YAML service configuration")
		recordsPath = global.String("records", "", "Path to a YAML record file (overrides source.path)")
	)
	global.Usage = func() {
		fmt.Fprintln(stderr, "usage: zonereport [flags] student -snapshot N")
		fmt.Fprintln(stderr, "       zonereport [flags] principal -snapshots 1,2,3")
		global.PrintDefaults()
	}
	if err := global.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if global.NArg() == 0 {
		global.Usage()
		return fmt.Errorf("%w: missing command", errUsage)
	}

	cfg := application.DefaultConfig()
	if *configPath != "" {
		loaded, err := application.LoadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *recordsPath != "" {
		cfg.Source.Kind = application.SourceKindYAML
		cfg.Source.Path = *recordsPath
	}

	command, rest := global.Arg(0), global.Args()[1:]
	var build func(*application.ReportService) (any, string, error)
	switch command {
	case "student":
		id, err := parseStudentFlags(rest, stderr)
		if err != nil {
			return err
		}
		build = func(svc *application.ReportService) (any, string, error) {
			report, err := svc.StudentReport(ctx, id)
			return report, report.Summary(), err
		}
	case "principal":
		ids, err := parsePrincipalFlags(rest, stderr)
		if err != nil {
			return err
		}
		build = func(svc *application.ReportService) (any, string, error) {
			report, err := svc.PrincipalReport(ctx, ids)
			return report, report.Summary(), err
		}
	default:
		global.Usage()
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}

	app, err := application.NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			fmt.Fprintf(stderr, "zonereport: %v\n", cerr)
		}
	}()

	report, summary, err := build(app.Service)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	fmt.Fprintln(stderr, summary)
	return nil
}

func parseStudentFlags(args []string, stderr io.Writer) (domain.SnapshotID, error) {
	fs := flag.NewFlagSet("student", flag.ContinueOnError)
	fs.SetOutput(stderr)
	snapshot := fs.Int("snapshot", -1, "Snapshot to report on")
	if err := fs.Parse(args); err != nil {
		return 0, fmt.Errorf("%w: %w", errUsage, err)
	}
	if *snapshot < 0 {
		return 0, fmt.Errorf("%w: -snapshot must be a non-negative integer", errUsage)
	}
	return domain.SnapshotID(*snapshot), nil
}

func parsePrincipalFlags(args []string, stderr io.Writer) ([]domain.SnapshotID, error) {
	fs := flag.NewFlagSet("principal", flag.ContinueOnError)
	fs.SetOutput(stderr)
	snapshots := fs.String("snapshots", "", "Comma-separated snapshots to combine")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	ids, err := parseSnapshotIDs(*snapshots)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	return ids, nil
}

// parseSnapshotIDs parses "1, 2,3". Range and duplicate checks are left to
// the report service.
func parseSnapshotIDs(s string) ([]domain.SnapshotID, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errors.New("-snapshots requires at least one id")
	}
	parts := strings.Split(s, ",")
	ids := make([]domain.SnapshotID, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid snapshot id %q", p)
		}
		ids = append(ids, domain.SnapshotID(n))
	}
	return ids, nil
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage), errors.Is(err, domain.ErrInvalidInput):
		return exitUsage
	case errors.Is(err, domain.ErrNoData):
		return exitNoData
	default:
		return exitFailure
	}
}
