// Command polity operates an entity store: it rebuilds the search index,
// exports and restores snapshots, and checks that the configured backends
// are reachable.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"polity/internal/blob"
	"polity/internal/config"
	"polity/internal/core"
	"polity/internal/observability"
	"polity/internal/search"
	"polity/pkg/domain"
)

var exitFunc = os.Exit

const usage = `usage: polity [flags] <command> [args]

commands:
  check              open the configured store, index and archive and print record counts
  reindex            rebuild every search document from the store
  export             write a snapshot of the store to the archive
  snapshots          list archived snapshots
  restore <key>      replace the store with an archived snapshot and reindex
`

func main() {
	exitFunc(cli(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func cli(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("polity", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	envFile := fs.String("env", ".env", "dotenv file read before the environment")
	trace := fs.Bool("trace", false, "write a JSON span per operation to stderr")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	command, rest := fs.Arg(0), fs.Args()[1:]
	run, ok := commands[command]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", command)
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	rt, err := open(ctx, cfg, stderr, *trace)
	if err != nil {
		fmt.Fprintf(stderr, "open: %v\n", err)
		return 1
	}
	defer func() {
		if err := rt.Close(); err != nil {
			fmt.Fprintf(stderr, "close: %v\n", err)
		}
	}()
	if err := run(ctx, rt, rest, stdout); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", command, err)
		return 1
	}
	return 0
}

type runtime struct {
	svc   *core.Service
	store domain.PersistentStore
	index search.Index
}

func open(ctx context.Context, cfg config.Config, stderr io.Writer, trace bool) (*runtime, error) {
	logger, err := observability.NewLogger(stderr, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	store, err := core.OpenPersistentStore(cfg.Storage, core.NewDefaultRulesEngine())
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	index, err := search.Open(ctx, cfg.Search)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("search: %w", err), core.CloseStore(store))
	}
	archive, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("archive: %w", err), search.Close(index), core.CloseStore(store))
	}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	opts := []core.Option{
		core.WithLogger(observability.NewZerologAdapter(logger)),
		core.WithAuditRecorder(observability.NewAuditLog(logger)),
		core.WithMetricsRecorder(metrics),
		core.WithIndexMetrics(metrics),
		core.WithIndex(index),
		core.WithBlobStore(archive),
		core.WithSyncAttempts(cfg.SyncAttempts),
		core.WithSyncBackoff(cfg.SyncBackoff),
	}
	if trace {
		opts = append(opts, core.WithTracer(observability.NewJSONTracer(stderr)))
	}
	return &runtime{svc: core.NewService(store, opts...), store: store, index: index}, nil
}

func (rt *runtime) Close() error {
	return errors.Join(search.Close(rt.index), core.CloseStore(rt.store))
}

type command func(ctx context.Context, rt *runtime, args []string, stdout io.Writer) error

var commands = map[string]command{
	"check":     runCheck,
	"reindex":   runReindex,
	"export":    runExport,
	"snapshots": runSnapshots,
	"restore":   runRestore,
}

func noArgs(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments %s", strings.Join(args, " "))
	}
	return nil
}

func runCheck(ctx context.Context, rt *runtime, args []string, stdout io.Writer) error {
	if err := noArgs(args); err != nil {
		return err
	}
	var counts []string
	err := rt.store.View(ctx, func(view domain.TransactionView) error {
		counts = []string{
			fmt.Sprintf("persons=%d", len(view.ListPersons())),
			fmt.Sprintf("organizations=%d", len(view.ListOrganizations())),
			fmt.Sprintf("posts=%d", len(view.ListPosts())),
			fmt.Sprintf("memberships=%d", len(view.ListMemberships())),
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, name := range core.IndexNames {
		if _, err := rt.index.Search(ctx, name, "", ""); err != nil {
			return fmt.Errorf("index %s: %w", name, err)
		}
	}
	if _, err := rt.svc.ListSnapshots(ctx); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	fmt.Fprintf(stdout, "ok search=%s %s\n", rt.index.Driver(), strings.Join(counts, " "))
	return nil
}

func printReport(stdout io.Writer, report core.ReindexReport) {
	names := make([]string, 0, len(report.Written))
	for name := range report.Written {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(stdout, "%s written=%d removed=%d\n", name, report.Written[name], report.Removed[name])
	}
}

func runReindex(ctx context.Context, rt *runtime, args []string, stdout io.Writer) error {
	if err := noArgs(args); err != nil {
		return err
	}
	report, err := rt.svc.Reindex(ctx)
	printReport(stdout, report)
	return err
}

func runExport(ctx context.Context, rt *runtime, args []string, stdout io.Writer) error {
	if err := noArgs(args); err != nil {
		return err
	}
	info, err := rt.svc.Export(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s %d\n", info.Key, info.Size)
	return nil
}

func runSnapshots(ctx context.Context, rt *runtime, args []string, stdout io.Writer) error {
	if err := noArgs(args); err != nil {
		return err
	}
	infos, err := rt.svc.ListSnapshots(ctx)
	if err != nil {
		return err
	}
	for _, info := range infos {
		fmt.Fprintf(stdout, "%s %d persons=%s\n", info.Key, info.Size, info.Metadata["persons"])
	}
	return nil
}

func runRestore(ctx context.Context, rt *runtime, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return errors.New("restore takes exactly one snapshot key")
	}
	report, err := rt.svc.Restore(ctx, args[0])
	if err != nil {
		return err
	}
	printReport(stdout, report)
	return nil
}
