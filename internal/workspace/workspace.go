// Package workspace handles the on-disk side of a conversion run: finding
// addons and models, staging files for the decompiler, and writing artifacts.
package workspace

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// TempDirName is the staging directory created inside the output directory.
const TempDirName = "_VMDL_EXTRACTOR_temp"

// AddonsDir is the addon root relative to the game install directory.
var AddonsDir = filepath.Join("game", "csgo_addons")

// ignoredAddons are folders under AddonsDir that are not addons.
var ignoredAddons = map[string]bool{
	"addon_template": true,
	"vpks":           true,
	"workshop_items": true,
}

// FindAddons returns the addon directories of a game install, sorted by name.
func FindAddons(gameDir string) ([]string, error) {
	root := filepath.Join(gameDir, AddonsDir)
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading addons dir: %w", err)
	}

	var addons []string
	for _, e := range entries {
		if !e.IsDir() || ignoredAddons[e.Name()] {
			continue
		}
		addons = append(addons, filepath.Join(root, e.Name()))
	}
	return addons, nil
}

// FindFiles returns every file under dir whose name ends in ext, sorted.
// ext is matched case-insensitively and may omit the leading dot.
func FindFiles(dir, ext string) ([]string, error) {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	ext = strings.ToLower(ext)

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && strings.ToLower(filepath.Ext(path)) == ext {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// CopyIndexed copies each regular file into dest as <index>_<name>, where
// index is the file's position in paths. The prefix keeps files with equal
// names from different folders apart. Paths that are not regular files are
// logged and skipped. Returns the destination paths.
func CopyIndexed(paths []string, dest string, log *zap.Logger) ([]string, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dest, err)
	}

	var copied []string
	for i, src := range paths {
		info, err := os.Stat(src)
		if err != nil || !info.Mode().IsRegular() {
			log.Warn("skipping non-file", zap.String("path", src))
			continue
		}

		target := filepath.Join(dest, fmt.Sprintf("%d_%s", i, filepath.Base(src)))
		if err := copyFile(src, target, info.Mode().Perm()); err != nil {
			return copied, err
		}
		copied = append(copied, target)
	}
	return copied, nil
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}

// PrepareTemp removes and recreates the staging directory inside outputDir.
func PrepareTemp(outputDir string) (string, error) {
	dir := filepath.Join(outputDir, TempDirName)
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("clearing %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	return dir, nil
}

// DirWriter writes artifacts into a directory on disk.
type DirWriter struct {
	Dir string
	Log *zap.Logger
}

// WriteArtifact writes data to Dir/name, creating Dir if needed.
func (w *DirWriter) WriteArtifact(name string, data []byte) error {
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	path := filepath.Join(w.Dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if w.Log != nil {
		w.Log.Info("wrote artifact", zap.String("name", name), zap.Int("bytes", len(data)))
	}
	return nil
}
