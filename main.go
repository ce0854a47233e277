/*
Command anima loads, packs and inspects game content with the engine's
asset pipeline.
*/
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	opt "github.com/repeale/fp-go/option"
	"github.com/spaghettifunk/anima/engine"
	"github.com/spaghettifunk/anima/engine/assets/loaders"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/testbed"
)

var CLI struct {
	Debug bool `help:"Whether to enable debug logging."`

	Load struct {
		Config string `arg:"" name:"config" help:"Engine configuration file." type:"existingfile"`
		Keep   bool   `help:"Keep running after the content is loaded."`
	} `cmd:"" help:"Boot the engine headless and load all content."`

	Pack struct {
		Dir string `arg:"" name:"dir" help:"Directory of TOML asset sources." type:"existingdir"`
		Out string `arg:"" name:"out" help:"Archive to write."`
	} `cmd:"" help:"Pack asset sources into an archive."`

	Inspect struct {
		Archive string `arg:"" name:"archive" help:"Packed archive to list." type:"existingfile"`
	} `cmd:"" help:"List the records of a packed archive and check they decode."`
}

func loadCommand(configPath string, keep bool) error {
	config, err := engine.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if CLI.Debug {
		config.LogLevel = "debug"
	}

	tb := testbed.NewTestGame(!keep)
	tb.ShaderSourceDir = filepath.Join(config.PackedDir, "shaders", "src")

	e, err := engine.New(tb.Game, config)
	if err != nil {
		return err
	}
	tb.Stop = e.Stop

	// signal context to capture system calls
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	if err := e.Initialize(ctx); err != nil {
		_ = e.Shutdown()
		return err
	}
	runErr := e.Run(ctx)
	if err := e.Shutdown(); err != nil {
		return err
	}
	return runErr
}

func packCommand(dir, out string) error {
	archive, err := loaders.PackSources(loaders.NewOSFileManager(dir), ".")
	if err != nil {
		return err
	}
	fm := loaders.NewOSFileManager(filepath.Dir(out))
	if err := loaders.WritePackedBlob(fm, filepath.Base(out), archive); err != nil {
		return err
	}
	core.LogInfo("packed %d records into %s", len(archive.Records), out)
	return nil
}

// inspectCommand lists the records of an archive and checks that each one
// decodes into its asset kind.
func inspectCommand(w io.Writer, path string) error {
	fm := loaders.NewOSFileManager(filepath.Dir(path))
	blob := loaders.LoadPackedBlob[loaders.PackedArchive](fm, filepath.Base(path))
	if opt.IsNone(blob) {
		return fmt.Errorf("%w: %s", core.ErrResourceNotFound, path)
	}
	archive := blob.Value
	fmt.Fprintf(w, "version %d, %d records\n", archive.Version, len(archive.Records))
	for i, r := range archive.Records {
		fmt.Fprintf(w, "%4d  %-12s %-36s %-24s %s (%d bytes)\n", i, r.Kind, r.GUID, r.Name, r.Path, len(r.Payload))
	}
	decoded := loaders.DecodeRecords(archive.Records)
	fmt.Fprintf(w, "%d of %d records decode\n", len(decoded), len(archive.Records))
	if bad := len(archive.Records) - len(decoded); bad > 0 {
		return fmt.Errorf("%w: %d records of %s do not decode", core.ErrInvalidState, bad, path)
	}
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("anima"),
		kong.Description("load, pack and inspect game content"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	if CLI.Debug {
		_ = core.SetLogLevel("debug")
		core.LogWarn("debug logging enabled")
	}

	var err error
	switch ctx.Command() {
	case "load <config>":
		err = loadCommand(CLI.Load.Config, CLI.Load.Keep)
	case "pack <dir> <out>":
		err = packCommand(CLI.Pack.Dir, CLI.Pack.Out)
	case "inspect <archive>":
		err = inspectCommand(os.Stdout, CLI.Inspect.Archive)
	}
	if err != nil {
		core.LogFatal("%s", err)
	}
}
