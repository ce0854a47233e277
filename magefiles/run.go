//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

type Run mg.Namespace

// Packs the sample content and loads it headless.
func (Run) Load() error {
	mg.Deps(Build.Archives)
	fmt.Println("Loading content...")
	args := []string{"load", filepath.Join("content", "anima.toml")}
	if mg.Verbose() {
		args = append([]string{"--debug"}, args...)
	}
	return sh.RunV(binary, args...)
}

// Lists the records of the packed sample archives.
func (Run) Inspect() error {
	mg.Deps(Build.Archives)
	for _, a := range archives {
		if err := sh.RunV(binary, "inspect", a.out); err != nil {
			return err
		}
	}
	return nil
}

// Runs the test suite with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}
