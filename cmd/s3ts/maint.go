package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/helix-collective/s3ts/pkg/cmdmain"
	"github.com/helix-collective/s3ts/pkg/tree"
)

type flushCmd struct {
	store  *storeFlags
	remote bool
	dryRun bool
}

func init() {
	cmdmain.RegisterCommand("flush", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		cmd := &flushCmd{store: addStoreFlags(flags)}
		flags.BoolVar(&cmd.remote, "remote", false, "flush the remote store instead of the local cache")
		flags.BoolVar(&cmd.dryRun, "dry-run", false, "report what would be removed without deleting anything")
		return cmd
	})
}

func (c *flushCmd) Describe() string {
	return "Remove chunks unreferenced by any kept package, from the local cache or the remote store."
}
func (c *flushCmd) Usage() {
	fmt.Fprintf(cmdmain.Stderr, "Usage: s3ts flush -bucket BUCKET [-remote] [-dry-run] <name>...\n")
}
func (c *flushCmd) Examples() []string { return []string{"-bucket my-trees v1 v2"} }

func (c *flushCmd) RunCommand(args []string) error {
	ctx := context.Background()
	ts, err := c.store.openStore(ctx)
	if err != nil {
		return err
	}
	opts := tree.FlushOptions{DryRun: c.dryRun}
	var removed []tree.ChunkRef
	if c.remote {
		removed, err = ts.FlushStore(ctx, opts)
	} else {
		removed, err = ts.FlushLocalCache(ctx, args, opts)
	}
	if err != nil {
		return err
	}
	for _, ref := range removed {
		fmt.Fprintf(cmdmain.Stdout, "%s %s\n", ref.Encoding, ref.SHA1)
	}
	fmt.Fprintf(cmdmain.Stderr, "%d chunks removed\n", len(removed))
	return nil
}

type validateCmd struct {
	store  *storeFlags
	remote bool
}

func init() {
	cmdmain.RegisterCommand("validate", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		cmd := &validateCmd{store: addStoreFlags(flags)}
		flags.BoolVar(&cmd.remote, "remote", false, "validate the remote store instead of the local cache")
		return cmd
	})
}

func (c *validateCmd) Describe() string {
	return "Recompute every stored chunk's hash and report any that don't match their key."
}
func (c *validateCmd) Usage() {
	fmt.Fprintf(cmdmain.Stderr, "Usage: s3ts validate -bucket BUCKET [-remote]\n")
}
func (c *validateCmd) Examples() []string { return []string{"-bucket my-trees -remote"} }

func (c *validateCmd) RunCommand(args []string) error {
	ctx := context.Background()
	ts, err := c.store.openStore(ctx)
	if err != nil {
		return err
	}
	var corrupt []tree.CorruptChunk
	if c.remote {
		corrupt, err = ts.ValidateStore(ctx)
	} else {
		corrupt, err = ts.ValidateLocalCache(ctx)
	}
	if err != nil {
		return err
	}
	for _, cc := range corrupt {
		fmt.Fprintf(cmdmain.Stdout, "%s: %v\n", cc.Key, cc.Err)
	}
	if len(corrupt) > 0 {
		return fmt.Errorf("%d corrupt chunks found", len(corrupt))
	}
	fmt.Fprintln(cmdmain.Stdout, "ok")
	return nil
}

type verifyCmd struct {
	store *storeFlags
	local bool
}

func init() {
	cmdmain.RegisterCommand("verify", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		cmd := &verifyCmd{store: addStoreFlags(flags)}
		flags.BoolVar(&cmd.local, "local", false, "verify against the local cache instead of the remote store")
		return cmd
	})
}

func (c *verifyCmd) Describe() string {
	return "Check that every chunk a package references is present."
}
func (c *verifyCmd) Usage() {
	fmt.Fprintf(cmdmain.Stderr, "Usage: s3ts verify -bucket BUCKET [-local] <name>\n")
}
func (c *verifyCmd) Examples() []string { return []string{"-bucket my-trees v1"} }

func (c *verifyCmd) RunCommand(args []string) error {
	if len(args) != 1 {
		return cmdmain.UsageError("verify takes exactly one package name")
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
	if c.local {
		if err := ts.VerifyLocal(ctx, pkg); err != nil {
			return err
		}
	} else if err := ts.Verify(ctx, pkg); err != nil {
		return err
	}
	fmt.Fprintln(cmdmain.Stdout, "ok")
	return nil
}

type findCmd struct {
	store *storeFlags
}

func init() {
	cmdmain.RegisterCommand("find", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		return &findCmd{store: addStoreFlags(flags)}
	})
}

func (c *findCmd) Describe() string {
	return "Look up a package by name and print a one-line summary of it."
}
func (c *findCmd) Usage() {
	fmt.Fprintf(cmdmain.Stderr, "Usage: s3ts find -bucket BUCKET <name>\n")
}
func (c *findCmd) Examples() []string { return []string{"-bucket my-trees latest"} }

func (c *findCmd) RunCommand(args []string) error {
	if len(args) != 1 {
		return cmdmain.UsageError("find takes exactly one name")
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
	fmt.Fprintf(cmdmain.Stdout, "%s: %d files, created %s\n", pkg.Name, len(pkg.Files), pkg.CreationTime.Time)
	return nil
}
