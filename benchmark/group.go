package benchmark

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	colorImageSuffix = "_.png"
	maskSuffix       = ".png"
)

var (
	ErrNoColorImage        = errors.New("no color image (*_.png) found")
	ErrNoMasks             = errors.New("no mask images found")
	ErrMultipleColorImages = errors.New("more than one color image (*_.png) found")
)

// Group is one benchmark subfolder: a color image and the masks to erase
// from it.
type Group struct {
	Name       string   `json:"name"`
	Dir        string   `json:"dir"`
	ColorImage string   `json:"color_image"`
	Masks      []string `json:"masks"`
	// Ignored holds extra color image candidates dropped by the
	// last-match-wins rule.
	Ignored []string `json:"ignored,omitempty"`
}

// Skip records a subfolder that was not processed.
type Skip struct {
	Group  string `json:"group"`
	Dir    string `json:"dir"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// IsColorImage reports whether name follows the color image convention.
func IsColorImage(name string) bool {
	return strings.HasSuffix(name, colorImageSuffix)
}

// IsMask reports whether name is a mask: any .png that is not a color image.
func IsMask(name string) bool {
	return strings.HasSuffix(name, maskSuffix) && !IsColorImage(name)
}

// ScanGroup 按文件名约定划分子目录：以 _.png 结尾的是彩色原图，其余 .png 是 mask。
// 多个原图候选时，strict 模式报错，否则按文件名排序取最后一个。
func ScanGroup(dir string, strict bool) (Group, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Group{}, fmt.Errorf("read subfolder: %w", err)
	}

	g := Group{Name: filepath.Base(dir), Dir: dir}
	var candidates []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch {
		case IsColorImage(name):
			candidates = append(candidates, filepath.Join(dir, name))
		case IsMask(name):
			g.Masks = append(g.Masks, filepath.Join(dir, name))
		}
	}

	switch {
	case len(candidates) == 0:
		return g, ErrNoColorImage
	case len(candidates) > 1 && strict:
		return g, fmt.Errorf("%w: %s", ErrMultipleColorImages, strings.Join(baseNames(candidates), ", "))
	}
	g.ColorImage = candidates[len(candidates)-1]
	g.Ignored = candidates[:len(candidates)-1]

	if len(g.Masks) == 0 {
		return g, ErrNoMasks
	}
	return g, nil
}

// Discover scans every immediate subdirectory of root in name order. Only an
// unreadable root is an error; malformed subfolders come back as skips.
func Discover(root string, strict bool) ([]Group, []Skip, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, nil, fmt.Errorf("read benchmark folder: %w", err)
	}

	var (
		groups []Group
		skips  []Skip
	)
	for _, e := range entries {
		dir := filepath.Join(root, e.Name())
		if !isDir(e, dir) {
			continue
		}
		g, err := ScanGroup(dir, strict)
		if err != nil {
			skips = append(skips, Skip{Group: e.Name(), Dir: dir, Reason: err.Error(), Err: err})
			continue
		}
		groups = append(groups, g)
	}
	return groups, skips, nil
}

// isDir follows symlinks.
func isDir(e os.DirEntry, path string) bool {
	if e.Type()&os.ModeSymlink == 0 {
		return e.IsDir()
	}
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func baseNames(paths []string) []string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return names
}
