package datasource

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// MoveDirectory implements Mutator. The target tree is created before any source file
// is removed; each file is copied then deleted, and the emptied source tree goes last.
func (l *LocalFS) MoveDirectory(ctx context.Context, src, dst string, progress func(Progress)) error {
	src, dst = filepath.Clean(l.Resolve(src)), filepath.Clean(l.Resolve(dst))
	if src == dst {
		return nil
	}
	if rel, err := filepath.Rel(src, dst); err == nil && rel != ".." &&
		!strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("cannot move %s into itself: %w", src, ErrInvalidRelocation)
	}
	if progress == nil {
		progress = func(Progress) {}
	}

	files, dirs, err := l.walk(src)
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", src, err)
	}
	progress(Progress{Stage: StageScan, Total: len(files)})

	if err := l.ops.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	// Parents before children
	sort.SliceStable(dirs, func(i, j int) bool { return len(dirs[i]) < len(dirs[j]) })
	for _, rel := range dirs {
		if err := l.ops.MkdirAll(filepath.Join(dst, rel), 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", rel, err)
		}
	}

	for i, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		from := filepath.Join(src, rel)
		data, err := l.ops.ReadFile(from)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", rel, err)
		}
		if err := l.ops.WriteFile(filepath.Join(dst, rel), data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", rel, err)
		}
		if err := l.ops.Remove(from); err != nil {
			return fmt.Errorf("failed to remove %s: %w", rel, err)
		}
		progress(Progress{Stage: StageMove, Moved: i + 1, Total: len(files), Current: rel})
	}

	if err := l.ops.RemoveAll(src); err != nil {
		return fmt.Errorf("failed to remove %s: %w", src, err)
	}
	l.log.Info("directory moved", "from", src, "to", dst, "files", len(files))
	return nil
}

// walk returns every file and directory below root as paths relative to it.
func (l *LocalFS) walk(root string) (files, dirs []string, err error) {
	stack := []string{""}
	for len(stack) > 0 {
		rel := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := l.ops.ReadDir(filepath.Join(root, rel))
		if err != nil {
			return nil, nil, err
		}
		for _, e := range entries {
			child := filepath.Join(rel, e.Name())
			if e.IsDir() {
				dirs = append(dirs, child)
				stack = append(stack, child)
			} else {
				files = append(files, child)
			}
		}
	}
	sort.Strings(files)
	return files, dirs, nil
}
