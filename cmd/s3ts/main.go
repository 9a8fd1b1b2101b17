// Command s3ts manages content-addressed, deduplicated directory-tree
// packages stored in an S3 bucket with a local on-disk chunk cache.
package main

import (
	"github.com/helix-collective/s3ts/pkg/cmdmain"
)

func main() {
	cmdmain.Main()
}
