//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

type Build mg.Namespace

var binary = filepath.Join("bin", "anima")

// Archives packed by Build.Archives: asset source directory to archive path.
var archives = []struct{ src, out string }{
	{src: filepath.Join("content", "preload"), out: filepath.Join("content", "packed", "preload_resources.bin")},
	{src: filepath.Join("content", "full"), out: filepath.Join("content", "packed", "resources.bin")},
}

// Builds the anima binary into bin/.
func (Build) Binary() error {
	return sh.RunV("go", "build", "-o", binary, ".")
}

// Packs the preload and full asset sources of the sample game into archives.
func (Build) Archives() error {
	mg.Deps(Build.Binary)
	for _, a := range archives {
		fmt.Printf("Packing %s into %s...\n", a.src, a.out)
		if err := sh.RunV(binary, "pack", a.src, a.out); err != nil {
			return fmt.Errorf("packing %s: %w", a.src, err)
		}
	}
	return nil
}
