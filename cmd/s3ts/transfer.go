package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/helix-collective/s3ts/pkg/cmdmain"
	"github.com/helix-collective/s3ts/pkg/tree"
)

type uploadCmd struct {
	store       *storeFlags
	name        string
	description string
	dryRun      bool
}

func init() {
	cmdmain.RegisterCommand("upload", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		cmd := &uploadCmd{store: addStoreFlags(flags)}
		flags.StringVar(&cmd.name, "name", "", "package name (required)")
		flags.StringVar(&cmd.description, "desc", "", "package description")
		flags.BoolVar(&cmd.dryRun, "dry-run", false, "chunk and check dedup, but don't write")
		return cmd
	})
}

func (c *uploadCmd) Describe() string { return "Upload a directory tree as a named package." }
func (c *uploadCmd) Usage() {
	fmt.Fprintf(cmdmain.Stderr, "Usage: s3ts upload -bucket BUCKET -name NAME <localDir>\n")
}
func (c *uploadCmd) Examples() []string { return []string{"-bucket my-trees -name v1 ./build"} }

func (c *uploadCmd) RunCommand(args []string) error {
	if c.name == "" {
		return cmdmain.UsageError("-name is required")
	}
	if len(args) != 1 {
		return cmdmain.UsageError("upload takes exactly one local directory argument")
	}
	ctx := context.Background()
	ts, err := c.store.openStore(ctx)
	if err != nil {
		return err
	}
	opts := tree.UploadOptions{DryRun: c.dryRun, Progress: progressPrinter(*cmdmain.FlagVerbose)}
	pkg, err := ts.Upload(ctx, c.name, c.description, nowTime(), args[0], opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmdmain.Stdout, "uploaded %q: %d files\n", pkg.Name, len(pkg.Files))
	return nil
}

type uploadManyCmd struct {
	store       *storeFlags
	name        string
	description string
	common      string
	dryRun      bool
}

func init() {
	cmdmain.RegisterCommand("uploadmany", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		cmd := &uploadManyCmd{store: addStoreFlags(flags)}
		flags.StringVar(&cmd.name, "name", "", "base package name (required)")
		flags.StringVar(&cmd.description, "desc", "", "package description")
		flags.StringVar(&cmd.common, "common", "", "directory of files shared by every variant (required)")
		flags.BoolVar(&cmd.dryRun, "dry-run", false, "chunk and check dedup, but don't write")
		return cmd
	})
}

func (c *uploadManyCmd) Describe() string {
	return "Upload a common directory plus one variant package per subdirectory."
}
func (c *uploadManyCmd) Usage() {
	fmt.Fprintf(cmdmain.Stderr, "Usage: s3ts uploadmany -bucket BUCKET -name NAME -common DIR <variantsDir>\n")
}
func (c *uploadManyCmd) Examples() []string {
	return []string{"-bucket my-trees -name app -common ./common ./variants"}
}

func (c *uploadManyCmd) RunCommand(args []string) error {
	if c.name == "" || c.common == "" {
		return cmdmain.UsageError("-name and -common are required")
	}
	if len(args) != 1 {
		return cmdmain.UsageError("uploadmany takes exactly one variants-directory argument")
	}
	ctx := context.Background()
	ts, err := c.store.openStore(ctx)
	if err != nil {
		return err
	}
	opts := tree.UploadOptions{DryRun: c.dryRun, Progress: progressPrinter(*cmdmain.FlagVerbose)}
	pkgs, err := ts.UploadMany(ctx, c.name, c.description, nowTime(), c.common, args[0], opts)
	if err != nil {
		return err
	}
	for _, pkg := range pkgs {
		fmt.Fprintf(cmdmain.Stdout, "uploaded %q: %d files\n", pkg.Name, len(pkg.Files))
	}
	return nil
}

type downloadCmd struct {
	store  *storeFlags
	http   bool
	dryRun bool
}

func init() {
	cmdmain.RegisterCommand("download", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		cmd := &downloadCmd{store: addStoreFlags(flags)}
		flags.BoolVar(&cmd.http, "http", false, "fetch chunks via chunk.url instead of the S3 API (manifest must have been through addurls)")
		flags.BoolVar(&cmd.dryRun, "dry-run", false, "report what would be fetched without writing the cache")
		return cmd
	})
}

func (c *downloadCmd) Describe() string { return "Download a package's chunks into the local cache." }
func (c *downloadCmd) Usage() {
	fmt.Fprintf(cmdmain.Stderr, "Usage: s3ts download -bucket BUCKET <name|manifest.json with -http>\n")
}
func (c *downloadCmd) Examples() []string { return []string{"-bucket my-trees v1"} }

func (c *downloadCmd) RunCommand(args []string) error {
	if len(args) != 1 {
		return cmdmain.UsageError("download takes exactly one argument")
	}
	ctx := context.Background()
	opts := tree.DownloadOptions{DryRun: c.dryRun, Progress: progressPrinter(*cmdmain.FlagVerbose)}

	if c.http {
		pkg, err := readManifestFile(args[0])
		if err != nil {
			return err
		}
		cache, err := c.store.localCache()
		if err != nil {
			return err
		}
		ts := tree.ForHTTPOnly(cache)
		return ts.DownloadHTTP(ctx, pkg, opts)
	}

	ts, err := c.store.openStore(ctx)
	if err != nil {
		return err
	}
	pkg, err := ts.FindPackage(ctx, args[0])
	if err != nil {
		return err
	}
	return ts.Download(ctx, pkg, opts)
}

type mergeCmd struct {
	store       *storeFlags
	name        string
	mappingFile string
}

func init() {
	cmdmain.RegisterCommand("merge", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		cmd := &mergeCmd{store: addStoreFlags(flags)}
		flags.StringVar(&cmd.name, "name", "", "new merged package name (required)")
		flags.StringVar(&cmd.mappingFile, "mapping", "", "JSON file mapping install-subdirectory -> existing package name (required)")
		return cmd
	})
}

func (c *mergeCmd) Describe() string {
	return "Create a merged package from a subdirectory-to-package mapping."
}
func (c *mergeCmd) Usage() {
	fmt.Fprintf(cmdmain.Stderr, "Usage: s3ts merge -bucket BUCKET -name NAME -mapping mapping.json\n")
}
func (c *mergeCmd) Examples() []string { return []string{"-bucket my-trees -name combo -mapping m.json"} }

func (c *mergeCmd) RunCommand(args []string) error {
	if c.name == "" || c.mappingFile == "" {
		return cmdmain.UsageError("-name and -mapping are required")
	}
	b, err := os.ReadFile(c.mappingFile)
	if err != nil {
		return fmt.Errorf("read mapping file: %w", err)
	}
	var mapping map[string]string
	if err := json.Unmarshal(b, &mapping); err != nil {
		return fmt.Errorf("parse mapping file: %w", err)
	}
	ctx := context.Background()
	ts, err := c.store.openStore(ctx)
	if err != nil {
		return err
	}
	pkg, err := ts.CreateMerged(ctx, c.name, nowTime(), mapping)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmdmain.Stdout, "created %q: %d files\n", pkg.Name, len(pkg.Files))
	return nil
}

type addURLsCmd struct {
	store  *storeFlags
	expiry int
	out    string
}

func init() {
	cmdmain.RegisterCommand("addurls", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		cmd := &addURLsCmd{store: addStoreFlags(flags)}
		flags.IntVar(&cmd.expiry, "expiry", 3600, "pre-signed URL validity, in seconds")
		flags.StringVar(&cmd.out, "out", "-", "output manifest path, or - for stdout")
		return cmd
	})
}

func (c *addURLsCmd) Describe() string {
	return "Write a package manifest with pre-signed chunk URLs for HTTP-only download."
}
func (c *addURLsCmd) Usage() {
	fmt.Fprintf(cmdmain.Stderr, "Usage: s3ts addurls -bucket BUCKET <name>\n")
}
func (c *addURLsCmd) Examples() []string { return []string{"-bucket my-trees -out v1.signed.json v1"} }

func (c *addURLsCmd) RunCommand(args []string) error {
	if len(args) != 1 {
		return cmdmain.UsageError("addurls takes exactly one package name")
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
	if err := ts.AddURLs(ctx, pkg, c.expiry); err != nil {
		return err
	}
	b, err := json.MarshalIndent(pkg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if c.out == "-" {
		_, err = cmdmain.Stdout.Write(append(b, '\n'))
		return err
	}
	return os.WriteFile(c.out, b, 0644)
}

func readManifestFile(path string) (*tree.Package, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %q: %w", path, err)
	}
	var pkg tree.Package
	if err := json.Unmarshal(b, &pkg); err != nil {
		return nil, fmt.Errorf("parse manifest %q: %w", path, err)
	}
	return &pkg, nil
}
