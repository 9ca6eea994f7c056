package builtins

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/skosovsky/toolbridge"
)

const defaultMaxReadBytes = 1 << 20

type listDirArgs struct {
	Path      string `json:"path" default:"."`
	Recursive bool   `json:"recursive,omitempty"`
	FilesOnly bool   `json:"files_only,omitempty"`
	DirsOnly  bool   `json:"dirs_only,omitempty"`
}

type dirEntry struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
	Size  string `json:"size"`
}

func newListDirTool(o Options) (toolbridge.Tool, error) {
	return toolbridge.NewTool("list_dir", `List the contents of a directory.

Args:
    path: The directory to list.
    recursive: Whether to descend into subdirectories.
    files_only: List only files.
    dirs_only: List only directories.

Returns:
    Entries with name, path, is_dir and a human readable size ("N/A" for directories).
`, func(_ context.Context, a listDirArgs) ([]dirEntry, error) {
		if a.FilesOnly && a.DirsOnly {
			return nil, &toolbridge.ClientError{Reason: "files_only and dirs_only are mutually exclusive", Err: toolbridge.ErrInvalidArguments}
		}
		root := o.resolve(a.Path)
		entries := []dirEntry{}
		add := func(path string, d fs.DirEntry) {
			if (a.FilesOnly && d.IsDir()) || (a.DirsOnly && !d.IsDir()) {
				return
			}
			e := dirEntry{Name: d.Name(), Path: path, IsDir: d.IsDir(), Size: "N/A"}
			if !d.IsDir() {
				if info, err := d.Info(); err == nil {
					e.Size = formatSize(info.Size())
				}
			}
			entries = append(entries, e)
		}
		if !a.Recursive {
			list, err := os.ReadDir(root)
			if err != nil {
				return nil, err
			}
			for _, d := range list {
				add(filepath.Join(root, d.Name()), d)
			}
			return entries, nil
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != root {
				add(path, d)
			}
			return nil
		})
		return entries, err
	}, toolbridge.WithTags("fs"))
}

type readFileArgs struct {
	FilePath string `json:"filepath"`
	MaxBytes *int   `json:"max_bytes"`
}

func newReadFileTool(o Options) (toolbridge.Tool, error) {
	return toolbridge.NewTool("read_file", `Read a UTF-8 text file.

Args:
    filepath: The path to the file.
    max_bytes: Read at most this many bytes; null for the default limit of 1 MiB.

Returns:
    The file content.
`, func(_ context.Context, a readFileArgs) (string, error) {
		limit := defaultMaxReadBytes
		if a.MaxBytes != nil {
			if *a.MaxBytes <= 0 {
				return "", &toolbridge.ClientError{Reason: "max_bytes must be positive", Err: toolbridge.ErrInvalidArguments}
			}
			limit = *a.MaxBytes
		}
		f, err := os.Open(o.resolve(a.FilePath))
		if err != nil {
			return "", err
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, int64(limit)))
		if err != nil {
			return "", err
		}
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%s is not a UTF-8 text file", a.FilePath)
		}
		return string(data), nil
	}, toolbridge.WithTags("fs"))
}

// FileData is one file for write_files.
type FileData struct {
	FilePath string `json:"file_path" description:"Path of the file to write."`
	Content  string `json:"content" description:"Full text content."`
}

type writeFilesArgs struct {
	FilesData []FileData `json:"files_data"`
}

func newWriteFilesTool(o Options) (toolbridge.Tool, error) {
	return toolbridge.NewTool("write_files", `Write content to multiple files, creating parent directories as needed.

Args:
    files_data: The files to write.

Returns:
    A map from file path to whether it was written.
`, func(_ context.Context, a writeFilesArgs) (map[string]bool, error) {
		results := make(map[string]bool, len(a.FilesData))
		var errs []error
		for _, fd := range a.FilesData {
			path := o.resolve(fd.FilePath)
			err := os.MkdirAll(filepath.Dir(path), 0o755)
			if err == nil {
				err = os.WriteFile(path, []byte(fd.Content), 0o644)
			}
			results[fd.FilePath] = err == nil
			if err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) == len(a.FilesData) && len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		return results, nil
	}, toolbridge.WithTags("fs", "write"), toolbridge.WithDangerous())
}

type createDirectoryArgs struct {
	Paths []string `json:"paths"`
}

func newCreateDirectoryTool(o Options) (toolbridge.Tool, error) {
	return toolbridge.NewTool("create_directory", `Create one or more directories, including parents.

Args:
    paths: The directories to create.

Returns:
    True when every directory exists afterwards.
`, func(_ context.Context, a createDirectoryArgs) (bool, error) {
		for _, p := range a.Paths {
			if err := os.MkdirAll(o.resolve(p), 0o755); err != nil {
				return false, err
			}
		}
		return true, nil
	}, toolbridge.WithTags("fs", "write"))
}

type findFilesArgs struct {
	Pattern       string `json:"pattern"`
	Directory     string `json:"directory" default:"."`
	Recursive     bool   `json:"recursive" default:"false"`
	IncludeHidden bool   `json:"include_hidden" default:"false"`
}

const noMatches = "No files found matching the criteria."

func newFindFilesTool(o Options) (toolbridge.Tool, error) {
	return toolbridge.NewTool("find_files", `Find files whose name matches a glob pattern.

Args:
    pattern: The glob pattern to match, e.g. "*.txt".
    directory: The directory to search in.
    recursive: Whether to search subdirectories.
    include_hidden: Whether to include hidden files.

Returns:
    The matching paths, or a message when nothing matches.
`, func(_ context.Context, a findFilesArgs) (any, error) {
		if _, err := filepath.Match(a.Pattern, ""); err != nil {
			return nil, &toolbridge.ClientError{Reason: fmt.Sprintf("invalid pattern %q", a.Pattern), Err: toolbridge.ErrInvalidArguments}
		}
		root := o.resolve(a.Directory)
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("directory %q not found", a.Directory)
		}
		var matches []string
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path == root {
				return nil
			}
			hidden := strings.HasPrefix(d.Name(), ".")
			if d.IsDir() {
				if !a.Recursive || (hidden && !a.IncludeHidden) {
					return filepath.SkipDir
				}
			}
			if hidden && !a.IncludeHidden {
				return nil
			}
			if ok, _ := filepath.Match(a.Pattern, d.Name()); ok {
				matches = append(matches, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return noMatches, nil
		}
		return matches, nil
	}, toolbridge.WithTags("fs"))
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
