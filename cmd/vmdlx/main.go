// vmdlx converts Source 2 models into cleaned, combined OBJ meshes.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/vmdl-extractor/internal/assets"
	"github.com/Faultbox/vmdl-extractor/internal/config"
	"github.com/Faultbox/vmdl-extractor/internal/decompiler"
	"github.com/Faultbox/vmdl-extractor/internal/logger"
	"github.com/Faultbox/vmdl-extractor/internal/pipeline"
	"github.com/Faultbox/vmdl-extractor/internal/workspace"
	"github.com/Faultbox/vmdl-extractor/pkg/mesh"
)

func main() {
	flag.Usage = printUsage
	config.ParseFlags()

	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Sugar.Debugf("config: %+v", cfg)

	command := args[0]
	args = args[1:]

	var cmdErr error
	switch command {
	case "addons":
		cmdErr = cmdAddons(cfg, args)
	case "models", "ls":
		cmdErr = cmdModels(cfg, args)
	case "convert":
		cmdErr = cmdConvert(cfg, args)
	case "obj":
		cmdErr = cmdObj(cfg, args)
	case "clean":
		cmdErr = cmdClean(cfg, args)
	case "config":
		cmdErr = cmdConfig(cfg, args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if cmdErr != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(cmdErr))
		logger.Sync()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `vmdlx - Source 2 model to OBJ converter

Usage:
  vmdlx [flags] <command> [args]

Commands:
  addons [gamedir]                        List addons of a game install
  models <addon-dir>                      List compiled models (.vmdl_c)
  convert <model.vmdl_c|addon-dir>...     Decompile and convert models
  obj <source-dir> [model.vmdl...]        Convert already decompiled models
  clean <in.obj> [out.obj]                Merge and clean an existing OBJ
  config [-print] [path]                  Save the effective configuration

Flags:`)
	flag.PrintDefaults()
	fmt.Fprintln(os.Stderr, `
Examples:
  vmdlx -game "C:/Steam/steamapps/common/Counter-Strike Global Offensive" addons
  vmdlx -out ./objs -render convert ./csgo_addons/surf_map
  vmdlx -threshold 0.95 -snap obj ./decompiled models/ramp.vmdl
  vmdlx clean ramp.obj ramp.clean.obj`)
}

func cmdAddons(cfg *config.Config, args []string) error {
	gameDir := cfg.Paths.GameDir
	if len(args) > 0 {
		gameDir = args[0]
	}
	if gameDir == "" {
		return fmt.Errorf("no game directory; pass one or set -game")
	}

	addons, err := workspace.FindAddons(gameDir)
	if err != nil {
		return err
	}
	for _, a := range addons {
		fmt.Printf("%-24s %s\n", filepath.Base(a), a)
	}
	fmt.Printf("\n%d addons\n", len(addons))
	return nil
}

func cmdModels(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("models", flag.ExitOnError)
	limit := fs.Int("n", 0, "Limit output to N models (0 = all)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: vmdlx models <addon-dir>")
	}

	models, err := findCompiled(cfg, fs.Arg(0))
	if err != nil {
		return err
	}
	for i, m := range models {
		if *limit > 0 && i >= *limit {
			fmt.Printf("... and %d more\n", len(models)-*limit)
			break
		}
		fmt.Println(m)
	}
	fmt.Printf("\n%d models\n", len(models))
	return nil
}

// findCompiled returns the compiled models in dir for every configured
// extension.
func findCompiled(cfg *config.Config, dir string) ([]string, error) {
	exts := cfg.Decompiler.Extensions
	if len(exts) == 0 {
		exts = decompiler.DefaultExtensions
	}
	var files []string
	for _, ext := range exts {
		found, err := workspace.FindFiles(dir, ext)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

func cmdConvert(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: vmdlx convert <model.vmdl_c|addon-dir>...")
	}
	if !cfg.AnyExport() {
		return fmt.Errorf("nothing to export; enable -render, -physics or combined output")
	}
	log := logger.L()

	var compiled []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			logger.Warn("skipping input", zap.String("path", arg), zap.Error(err))
			continue
		}
		if !info.IsDir() {
			compiled = append(compiled, arg)
			continue
		}
		found, err := findCompiled(cfg, arg)
		if err != nil {
			return err
		}
		compiled = append(compiled, found...)
	}
	if len(compiled) == 0 {
		return fmt.Errorf("no compiled models found")
	}

	// Resolve the tool before touching the output directory.
	tool, err := decompiler.Locate("", cfg.Decompiler.Path)
	if err != nil {
		return err
	}

	temp, err := workspace.PrepareTemp(cfg.Paths.OutputDir)
	if err != nil {
		return err
	}
	if !cfg.Decompiler.KeepTemp {
		defer os.RemoveAll(temp)
	}

	input := filepath.Join(temp, "input")
	output := filepath.Join(temp, "decompiled")
	if _, err := workspace.CopyIndexed(compiled, input, log); err != nil {
		return err
	}

	logger.Info("decompiling models", zap.Int("count", len(compiled)), zap.String("tool", tool))
	d := decompiler.New(tool, cfg.Decompiler.Extensions, log)
	if err := d.Run(input, output); err != nil {
		return err
	}

	models, err := workspace.FindFiles(output, "vmdl")
	if err != nil {
		return err
	}
	if len(models) < len(compiled) {
		logger.Warn("decompiler produced fewer models than inputs",
			zap.Int("inputs", len(compiled)), zap.Int("models", len(models)))
	}
	return convertModels(cfg, output, models)
}

func cmdObj(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: vmdlx obj <source-dir> [model.vmdl...]")
	}
	dir := args[0]

	models := args[1:]
	if len(models) == 0 {
		found, err := workspace.FindFiles(dir, "vmdl")
		if err != nil {
			return err
		}
		models = found
	} else {
		for i, m := range models {
			if _, err := os.Stat(m); err != nil {
				// Not a path from here; treat it as relative to dir.
				models[i] = filepath.Join(dir, m)
			}
		}
	}
	return convertModels(cfg, dir, models)
}

// convertModels converts model files located under dir and writes artifacts
// into the configured output directory.
func convertModels(cfg *config.Config, dir string, models []string) error {
	log := logger.L()

	if len(models) == 0 {
		return fmt.Errorf("no models found in %s", dir)
	}

	sources := assets.NewManager(log)
	defer sources.Close()
	if err := sources.AddDir(dir); err != nil {
		return err
	}

	names := make([]string, 0, len(models))
	for _, m := range models {
		name, err := sourceName(dir, m)
		if err != nil {
			return err
		}
		names = append(names, name)
	}

	out := &workspace.DirWriter{Dir: cfg.Paths.OutputDir, Log: log}
	conv := pipeline.NewConverter(pipeline.OptionsFromConfig(cfg), sources, out, log)

	results, err := conv.ConvertAll(names)
	for _, r := range results {
		if len(r.Artifacts) == 0 {
			fmt.Printf("%-32s (nothing written)\n", r.Model)
			continue
		}
		fmt.Printf("%-32s %s\n", r.Model, strings.Join(r.Artifacts, " "))
	}

	hits, misses := sources.Stats()
	logger.Debug("source cache", zap.Int("hits", hits), zap.Int("misses", misses))

	fmt.Printf("\n%d/%d models converted\n", len(results), len(models))
	return err
}

// sourceName converts a model path into a slash-separated name relative to
// the source root.
func sourceName(dir, model string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	absModel, err := filepath.Abs(model)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absDir, absModel)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("model %s is outside %s", model, dir)
	}
	return filepath.ToSlash(rel), nil
}

func cmdClean(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: vmdlx clean <in.obj> [out.obj]")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	// Fail loudly here rather than letting the combiner skip the input.
	in, err := mesh.ParseOBJ(data)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	if err := in.Validate(); err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	conv := pipeline.NewConverter(pipeline.OptionsFromConfig(cfg), nil, nil, logger.L())
	m := conv.Consolidate([][]byte{data}, nil)

	if len(args) < 2 {
		return mesh.WriteOBJ(os.Stdout, m)
	}
	return os.WriteFile(args[1], mesh.EncodeOBJ(m), 0644)
}

func cmdConfig(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	printOnly := fs.Bool("print", false, "Print the configuration instead of saving it")
	fs.Parse(args)

	if *printOnly {
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	path := config.DefaultPath()
	if fs.NArg() > 0 {
		path = fs.Arg(0)
		if err := cfg.SaveTo(path); err != nil {
			return err
		}
	} else if err := cfg.Save(); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}
