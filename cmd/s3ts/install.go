package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/helix-collective/s3ts/pkg/cmdmain"
	"github.com/helix-collective/s3ts/pkg/tree"
)

type installCmd struct {
	store *storeFlags
}

func init() {
	cmdmain.RegisterCommand("install", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		return &installCmd{store: addStoreFlags(flags)}
	})
}

func (c *installCmd) Describe() string { return "Reconstruct a package's files under a target directory." }
func (c *installCmd) Usage() {
	fmt.Fprintf(cmdmain.Stderr, "Usage: s3ts install -bucket BUCKET <name> <targetDir>\n")
}
func (c *installCmd) Examples() []string { return []string{"-bucket my-trees v1 ./out"} }

func (c *installCmd) RunCommand(args []string) error {
	if len(args) != 2 {
		return cmdmain.UsageError("install takes a package name and a target directory")
	}
	ctx := context.Background()
	ts, err := c.store.openStore(ctx)
	if err != nil {
		return err
	}
	pkg, err := ts.FindPackage(ctx, args[0])
	if err != nil {
		return err
	}
	opts := tree.InstallOptions{Progress: progressPrinter(*cmdmain.FlagVerbose)}
	return ts.Install(ctx, pkg, args[1], opts)
}

type syncCmd struct {
	store *storeFlags
}

func init() {
	cmdmain.RegisterCommand("sync", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		return &syncCmd{store: addStoreFlags(flags)}
	})
}

func (c *syncCmd) Describe() string {
	return "Incrementally update a previously installed directory to match a package."
}
func (c *syncCmd) Usage() {
	fmt.Fprintf(cmdmain.Stderr, "Usage: s3ts sync -bucket BUCKET <name> <targetDir>\n")
}
func (c *syncCmd) Examples() []string { return []string{"-bucket my-trees v2 ./out"} }

func (c *syncCmd) RunCommand(args []string) error {
	if len(args) != 2 {
		return cmdmain.UsageError("sync takes a package name and a target directory")
	}
	ctx := context.Background()
	ts, err := c.store.openStore(ctx)
	if err != nil {
		return err
	}
	pkg, err := ts.FindPackage(ctx, args[0])
	if err != nil {
		return err
	}
	opts := tree.InstallOptions{Progress: progressPrinter(*cmdmain.FlagVerbose)}
	return ts.Sync(ctx, pkg, args[1], opts)
}

type compareCmd struct {
	store *storeFlags
}

func init() {
	cmdmain.RegisterCommand("compare", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		return &compareCmd{store: addStoreFlags(flags)}
	})
}

func (c *compareCmd) Describe() string {
	return "Compare an installed directory's on-disk content against a package, without touching the store."
}
func (c *compareCmd) Usage() {
	fmt.Fprintf(cmdmain.Stderr, "Usage: s3ts compare -bucket BUCKET <name> <targetDir>\n")
}
func (c *compareCmd) Examples() []string { return []string{"-bucket my-trees v1 ./out"} }

func (c *compareCmd) RunCommand(args []string) error {
	if len(args) != 2 {
		return cmdmain.UsageError("compare takes a package name and a target directory")
	}
	ctx := context.Background()
	ts, err := c.store.openStore(ctx)
	if err != nil {
		return err
	}
	pkg, err := ts.FindPackage(ctx, args[0])
	if err != nil {
		return err
	}
	res, err := tree.CompareInstall(pkg, args[1])
	if err != nil {
		return err
	}
	if res.Empty() {
		fmt.Fprintln(cmdmain.Stdout, "match")
		return nil
	}
	for _, p := range res.Missing {
		fmt.Fprintf(cmdmain.Stdout, "missing %s\n", p)
	}
	for _, p := range res.Extra {
		fmt.Fprintf(cmdmain.Stdout, "extra   %s\n", p)
	}
	for _, p := range res.Diffs {
		fmt.Fprintf(cmdmain.Stdout, "diff    %s\n", p)
	}
	return fmt.Errorf("directory does not match package %q", args[0])
}
