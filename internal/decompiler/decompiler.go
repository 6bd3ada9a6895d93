// Package decompiler locates and runs the external Source 2 model decompiler
// (Source2Viewer-CLI) that turns compiled .vmdl_c files into text documents.
package decompiler

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/vmdl-extractor/pkg/encoding"
)

// ErrNotFound is returned when no decompiler executable can be located.
var ErrNotFound = errors.New("decompiler not found")

// Executable layout searched for by Locate.
const (
	ToolDir  = "vrf"
	ToolName = "Source2Viewer-CLI"
)

// DefaultExtensions are the compiled extensions decompiled when none are set.
var DefaultExtensions = []string{"vmdl_c"}

// executableName returns the platform file name of the decompiler.
func executableName() string {
	if runtime.GOOS == "windows" {
		return ToolName + ".exe"
	}
	return ToolName
}

// Locate finds the decompiler executable. An explicit override wins when it
// exists. Otherwise start is walked for a vrf/ folder holding the tool, then
// each ancestor of start is checked for one.
func Locate(start, override string) (string, error) {
	if override != "" {
		if isFile(override) {
			return override, nil
		}
		return "", fmt.Errorf("%w: %s", ErrNotFound, override)
	}

	if start == "" {
		start = "."
	}
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", start, err)
	}

	name := executableName()
	found := ""
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			// Unreadable subtrees are skipped.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() && d.Name() == ToolDir {
			if candidate := filepath.Join(path, name); isFile(candidate) {
				found = candidate
				return fs.SkipAll
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("searching %s: %w", start, err)
	}
	if found != "" {
		return found, nil
	}

	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
		if candidate := filepath.Join(dir, ToolDir, name); isFile(candidate) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: no %s/%s under %s or its parents", ErrNotFound, ToolDir, name, start)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Decompiler runs the decompiler executable.
type Decompiler struct {
	Path       string
	Extensions []string
	Log        *zap.Logger
}

// New creates a decompiler for the executable at path.
func New(path string, extensions []string, log *zap.Logger) *Decompiler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Decompiler{Path: path, Extensions: extensions, Log: log}
}

// Args returns the command line arguments for decompiling inputDir into
// outputDir.
func (d *Decompiler) Args(inputDir, outputDir string) []string {
	exts := d.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	return []string{
		"--input", inputDir,
		"--vpk_decompile",
		"--vpk_extensions", strings.Join(exts, ","),
		"--recursive",
		"--recursive_vpk",
		"--output", outputDir,
	}
}

// Run decompiles every matching file under inputDir into outputDir and blocks
// until the tool exits. A non-zero exit status is logged and not returned;
// only a failure to start the tool is an error.
func (d *Decompiler) Run(inputDir, outputDir string) error {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(d.Path, d.Args(inputDir, outputDir)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Info("running decompiler",
		zap.String("tool", d.Path),
		zap.String("input", inputDir),
		zap.String("output", outputDir))

	err := cmd.Run()

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		log.Warn("decompiler failed",
			zap.String("input", inputDir),
			zap.Int("exit_code", exitErr.ExitCode()),
			zap.String("stderr", encoding.DecodeText(stderr.Bytes())),
			zap.String("stdout", encoding.DecodeText(stdout.Bytes())))
		return nil
	case err != nil:
		return fmt.Errorf("starting decompiler %s: %w", d.Path, err)
	}

	if out := strings.TrimSpace(encoding.DecodeText(stdout.Bytes())); out != "" {
		log.Info("decompiler output", zap.String("stdout", out))
	}
	return nil
}
