package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/thiagokokada/cgraph-go/internal/buildinfo"
	"github.com/thiagokokada/cgraph-go/internal/git"
)

var errMismatch = errors.New("commit-graph does not match the object database")

type command struct {
	usage string
	run   func(ctx context.Context, svc *git.Service, args []string, stdout io.Writer) error
}

var commands = map[string]command{
	"info":   {usage: "info [-watch]", run: runInfo},
	"show":   {usage: "show <rev>", run: runShow},
	"log":    {usage: "log [-n N] [rev]", run: runLog},
	"verify": {usage: "verify [-n N] [rev]", run: runVerify},
}

func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, os.Args[1:], os.Stdout)
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("cgraph", flag.ContinueOnError)
	repoPath := fs.String("repo", ".", "path to the git repository")
	verbose := fs.Bool("verbose", false, "enable verbose logging")
	showVersion := fs.Bool("version", false, "print version information and exit")
	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintln(out, "usage: cgraph [flags] <command> [args]")
		fmt.Fprintln(out, "\ncommands:")
		for _, name := range []string{"info", "show", "log", "verify"} {
			fmt.Fprintf(out, "  %s\n", commands[name].usage)
		}
		fmt.Fprintln(out, "\nflags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Fprintln(stdout, buildinfo.VersionWithTags())
		return nil
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	remaining := fs.Args()
	if len(remaining) == 0 {
		fs.Usage()
		return errors.New("missing command")
	}
	cmd, ok := commands[remaining[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", remaining[0])
	}

	svc, err := git.Open(*repoPath)
	if err != nil {
		return err
	}
	slog.Debug("session started",
		slog.String("repo", svc.RepoPath()),
		slog.String("command", remaining[0]),
		slog.Bool("commit_graph", svc.HasGraph()),
	)
	err = cmd.run(ctx, svc, remaining[1:], stdout)
	return errors.Join(err, svc.Close())
}

func parseSubcommand(name string, args []string, setup func(*flag.FlagSet)) (*flag.FlagSet, error) {
	fs := flag.NewFlagSet("cgraph "+name, flag.ContinueOnError)
	if setup != nil {
		setup(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return fs, nil
}

// revArg returns the optional revision argument, HEAD by default.
func revArg(fs *flag.FlagSet) (string, error) {
	switch fs.NArg() {
	case 0:
		return "HEAD", nil
	case 1:
		return fs.Arg(0), nil
	default:
		return "", fmt.Errorf("%s: too many arguments", fs.Name())
	}
}

func runInfo(ctx context.Context, svc *git.Service, args []string, stdout io.Writer) error {
	var watch bool
	if _, err := parseSubcommand("info", args, func(fs *flag.FlagSet) {
		fs.BoolVar(&watch, "watch", false, "print again whenever the commit-graph changes")
	}); err != nil {
		return err
	}
	if !watch {
		st, err := svc.Stats()
		if err != nil {
			return err
		}
		printStats(stdout, st)
		return nil
	}

	var mu sync.Mutex
	report := func() {
		mu.Lock()
		defer mu.Unlock()
		st, err := svc.Stats()
		if errors.Is(err, git.ErrNoCommitGraph) {
			fmt.Fprintf(stdout, "no commit-graph at %s\n", svc.GraphPath())
			return
		}
		if err != nil {
			slog.Error("stats", slog.Any("error", err))
			return
		}
		printStats(stdout, st)
	}
	report()
	if err := svc.Watch(func(err error) {
		if err == nil {
			report()
		}
	}); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func printStats(w io.Writer, st git.Stats) {
	extra := "no"
	if st.ExtraEdges {
		extra = "yes"
	}
	fmt.Fprintf(w, "path:            %s\n", st.Path)
	fmt.Fprintf(w, "size:            %s\n", humanize.Bytes(uint64(st.Size)))
	fmt.Fprintf(w, "commits:         %s\n", humanize.Comma(int64(st.Commits)))
	fmt.Fprintf(w, "roots:           %s\n", humanize.Comma(int64(st.Roots)))
	fmt.Fprintf(w, "merges:          %s (%s octopus)\n", humanize.Comma(int64(st.Merges)), humanize.Comma(int64(st.Octopus)))
	fmt.Fprintf(w, "max generation:  %d\n", st.MaxGeneration)
	fmt.Fprintf(w, "extra edges:     %s\n", extra)
	if st.Malformed > 0 {
		fmt.Fprintf(w, "malformed:       %d\n", st.Malformed)
	}
}

func runShow(_ context.Context, svc *git.Service, args []string, stdout io.Writer) error {
	fs, err := parseSubcommand("show", args, nil)
	if err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: cgraph " + commands["show"].usage)
	}
	c, err := svc.Commit(fs.Arg(0))
	if c == nil {
		return err
	}
	source := "objects"
	if c.FromGraph {
		source = "commit-graph"
	}
	fmt.Fprintf(stdout, "commit %s\n", c.Hash)
	fmt.Fprintf(stdout, "tree %s\n", c.TreeHash)
	for _, p := range c.ParentHashes {
		fmt.Fprintf(stdout, "parent %s\n", p)
	}
	fmt.Fprintf(stdout, "generation %s\n", generation(c))
	fmt.Fprintf(stdout, "committer-time %s\n", c.When.UTC().Format(time.RFC3339))
	fmt.Fprintf(stdout, "source %s\n", source)
	return err
}

func runLog(ctx context.Context, svc *git.Service, args []string, stdout io.Writer) error {
	var limit int
	fs, err := parseSubcommand("log", args, func(fs *flag.FlagSet) {
		fs.IntVar(&limit, "n", 0, "maximum number of commits to print (0 for all)")
	})
	if err != nil {
		return err
	}
	rev, err := revArg(fs)
	if err != nil {
		return err
	}
	return svc.Log(rev, limit, func(c *git.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := fmt.Fprintf(stdout, "%s %s gen=%s parents=%d\n",
			c.Hash.String()[:7],
			c.When.UTC().Format(time.RFC3339),
			generation(c),
			len(c.ParentHashes),
		)
		return err
	})
}

func runVerify(_ context.Context, svc *git.Service, args []string, stdout io.Writer) error {
	var limit int
	fs, err := parseSubcommand("verify", args, func(fs *flag.FlagSet) {
		fs.IntVar(&limit, "n", 0, "maximum number of commits to check (0 for all)")
	})
	if err != nil {
		return err
	}
	rev, err := revArg(fs)
	if err != nil {
		return err
	}
	res, err := svc.Verify(rev, limit)
	if err != nil {
		return err
	}
	for _, m := range res.Mismatches {
		fmt.Fprint(stdout, m.Diff)
	}
	fmt.Fprintf(stdout, "checked %d commits, %d not in commit-graph, %d mismatches\n",
		res.Checked, res.NotInGraph, len(res.Mismatches))
	if len(res.Mismatches) > 0 {
		return fmt.Errorf("%w: %d commits", errMismatch, len(res.Mismatches))
	}
	return nil
}

func generation(c *git.Commit) string {
	if !c.FromGraph {
		return "-"
	}
	return fmt.Sprint(c.Generation)
}
