// Package osutil resolves the filesystem locations s3ts uses when the
// caller doesn't specify one explicitly: the local chunk cache
// directory and the user's home directory.
package osutil

import (
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

// HomeDir returns the path to the user's home directory, or the empty
// string if it isn't known.
func HomeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
	}
	return os.Getenv("HOME")
}

var cacheDirOnce sync.Once

// CacheDir returns the directory s3ts uses as its local chunk cache
// when none is configured, creating it if necessary. It honors
// S3TS_CACHE_DIR; otherwise it uses ~/Library/Caches/s3ts on macOS,
// s3ts under TEMP (or TMP) on Windows, and elsewhere
// $XDG_CACHE_HOME/s3ts, falling back to $HOME/.cache/s3ts.
func CacheDir() string {
	cacheDirOnce.Do(func() {
		if err := os.MkdirAll(cacheDir(), 0700); err != nil {
			log.Fatalf("osutil: could not create cache dir %v: %v", cacheDir(), err)
		}
	})
	return cacheDir()
}

func cacheDir() string {
	if d := os.Getenv("S3TS_CACHE_DIR"); d != "" {
		return d
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(HomeDir(), "Library", "Caches", "s3ts")
	case "windows":
		for _, ev := range []string{"TEMP", "TMP"} {
			if v := os.Getenv(ev); v != "" {
				return filepath.Join(v, "s3ts")
			}
		}
		panic("osutil: no Windows TEMP or TMP environment variable found")
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "s3ts")
	}
	return filepath.Join(HomeDir(), ".cache", "s3ts")
}
