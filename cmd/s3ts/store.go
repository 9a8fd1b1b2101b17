package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/helix-collective/s3ts/pkg/cmdmain"
	"github.com/helix-collective/s3ts/pkg/tree"
)

type createCmd struct {
	store          *storeFlags
	chunkSize      int
	useCompression bool
}

func init() {
	cmdmain.RegisterCommand("create", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		cmd := &createCmd{store: addStoreFlags(flags)}
		flags.IntVar(&cmd.chunkSize, "chunk-size", 4<<20, "chunk size in bytes")
		flags.BoolVar(&cmd.useCompression, "compress", true, "store chunks zlib-compressed when that's smaller")
		return cmd
	})
}

func (c *createCmd) Describe() string { return "Initialize a new store in an S3 bucket." }
func (c *createCmd) Usage() {
	fmt.Fprintf(cmdmain.Stderr, "Usage: s3ts create -bucket BUCKET [-prefix PREFIX] [-chunk-size N] [-compress]\n")
}
func (c *createCmd) Examples() []string { return []string{"-bucket my-trees -chunk-size 4194304"} }

func (c *createCmd) RunCommand(args []string) error {
	ctx := context.Background()
	remote, err := c.store.remote(ctx)
	if err != nil {
		return err
	}
	cache, err := c.store.localCache()
	if err != nil {
		return err
	}
	config := tree.Configuration{ChunkSize: c.chunkSize, UseCompression: c.useCompression}
	if _, err := tree.Create(ctx, remote, cache, config); err != nil {
		return err
	}
	fmt.Fprintf(cmdmain.Stdout, "store created in bucket %q\n", c.store.bucket)
	return nil
}

type infoCmd struct{ store *storeFlags }

func init() {
	cmdmain.RegisterCommand("info", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		return &infoCmd{store: addStoreFlags(flags)}
	})
}

func (c *infoCmd) Describe() string { return "Print aggregate store statistics." }
func (c *infoCmd) Usage()           { fmt.Fprintf(cmdmain.Stderr, "Usage: s3ts info -bucket BUCKET\n") }
func (c *infoCmd) Examples() []string { return []string{"-bucket my-trees"} }

func (c *infoCmd) RunCommand(args []string) error {
	ctx := context.Background()
	ts, err := c.store.openStore(ctx)
	if err != nil {
		return err
	}
	stats, err := ts.Stats(ctx)
	if err != nil {
		return err
	}
	cfg := ts.Config()
	fmt.Fprintf(cmdmain.Stdout, "packages:      %d\n", stats.NumPackages)
	fmt.Fprintf(cmdmain.Stdout, "metapackages:  %d\n", stats.NumMetaPackages)
	fmt.Fprintf(cmdmain.Stdout, "chunk bytes:   %s\n", humanize.Bytes(uint64(stats.ApproxChunkBytes)))
	fmt.Fprintf(cmdmain.Stdout, "chunk size:    %s\n", humanize.Bytes(uint64(cfg.ChunkSize)))
	fmt.Fprintf(cmdmain.Stdout, "compression:   %v\n", cfg.UseCompression)
	return nil
}

type lsCmd struct {
	store *storeFlags
	meta  bool
}

func init() {
	cmdmain.RegisterCommand("ls", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		cmd := &lsCmd{store: addStoreFlags(flags)}
		flags.BoolVar(&cmd.meta, "meta", false, "list metapackages instead of packages")
		return cmd
	})
}

func (c *lsCmd) Describe() string { return "List packages (or metapackages) in a store." }
func (c *lsCmd) Usage()           { fmt.Fprintf(cmdmain.Stderr, "Usage: s3ts ls -bucket BUCKET [-meta]\n") }
func (c *lsCmd) Examples() []string { return []string{"-bucket my-trees"} }

func (c *lsCmd) RunCommand(args []string) error {
	ctx := context.Background()
	ts, err := c.store.openStore(ctx)
	if err != nil {
		return err
	}
	var names []string
	if c.meta {
		names, err = ts.ListMetaPackages(ctx)
	} else {
		names, err = ts.ListPackages(ctx)
	}
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(cmdmain.Stdout, n)
	}
	return nil
}

type rmCmd struct{ store *storeFlags }

func init() {
	cmdmain.RegisterCommand("rm", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		return &rmCmd{store: addStoreFlags(flags)}
	})
}

func (c *rmCmd) Describe() string { return "Remove a package manifest." }
func (c *rmCmd) Usage()           { fmt.Fprintf(cmdmain.Stderr, "Usage: s3ts rm -bucket BUCKET <name>\n") }
func (c *rmCmd) Examples() []string { return []string{"-bucket my-trees v1"} }

func (c *rmCmd) RunCommand(args []string) error {
	if len(args) != 1 {
		return cmdmain.UsageError("rm takes exactly one package name")
	}
	ctx := context.Background()
	ts, err := c.store.openStore(ctx)
	if err != nil {
		return err
	}
	return ts.Remove(ctx, args[0])
}

type renameCmd struct{ store *storeFlags }

func init() {
	cmdmain.RegisterCommand("rename", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		return &renameCmd{store: addStoreFlags(flags)}
	})
}

func (c *renameCmd) Describe() string { return "Rename a package manifest." }
func (c *renameCmd) Usage() {
	fmt.Fprintf(cmdmain.Stderr, "Usage: s3ts rename -bucket BUCKET <from> <to>\n")
}
func (c *renameCmd) Examples() []string { return []string{"-bucket my-trees v1 v1-old"} }

func (c *renameCmd) RunCommand(args []string) error {
	if len(args) != 2 {
		return cmdmain.UsageError("rename takes exactly two package names")
	}
	ctx := context.Background()
	ts, err := c.store.openStore(ctx)
	if err != nil {
		return err
	}
	return ts.Rename(ctx, args[0], args[1])
}

type copyCmd struct{ store *storeFlags }

func init() {
	cmdmain.RegisterCommand("copy", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		return &copyCmd{store: addStoreFlags(flags)}
	})
}

func (c *copyCmd) Describe() string { return "Copy a package manifest under a new name." }
func (c *copyCmd) Usage() {
	fmt.Fprintf(cmdmain.Stderr, "Usage: s3ts copy -bucket BUCKET <name> <newName>\n")
}
func (c *copyCmd) Examples() []string { return []string{"-bucket my-trees v1 v1-backup"} }

func (c *copyCmd) RunCommand(args []string) error {
	if len(args) != 2 {
		return cmdmain.UsageError("copy takes exactly two package names")
	}
	ctx := context.Background()
	ts, err := c.store.openStore(ctx)
	if err != nil {
		return err
	}
	return ts.CopyPackage(ctx, args[0], args[1])
}
