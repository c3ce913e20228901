package client

import (
	"fmt"
	"os"
	"path/filepath"
)

type ValidationError struct {
	Arg   string
	Cause string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Arg, e.Cause)
}

type PathKind int

const (
	PathFile PathKind = iota
	PathDir
)

type ParsedPath struct {
	FullPath string
	Kind     PathKind
}

func ParseArgs(args []string) ([]ParsedPath, error) {
	if len(args) == 0 {
		return nil, &ValidationError{Arg: "<paths>", Cause: "no paths provided"}
	}

	var out []ParsedPath

	for _, raw := range args {
		p := filepath.Clean(raw)
		info, err := os.Stat(p)
		if err != nil {
			return nil, &ValidationError{Arg: raw, Cause: "not found or not accessible"}
		}

		kind := PathFile
		if info.IsDir() {
			kind = PathDir
		}

		out = append(out, ParsedPath{FullPath: p, Kind: kind})
	}

	return out, nil
}

// LocalFile is a regular file found on disk, ready to upload.
type LocalFile struct {
	Path string
	Name string
	Size int64
}

// Collect expands parsed paths into the regular files they name. Directories
// are walked recursively in lexical order.
func Collect(paths []ParsedPath) ([]LocalFile, error) {
	var files []LocalFile

	for _, parsedPath := range paths {
		if parsedPath.Kind == PathDir {
			found, err := collectDir(parsedPath.FullPath)
			if err != nil {
				return nil, err
			}
			files = append(files, found...)
			continue
		}

		file, err := statFile(parsedPath.FullPath)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no files found in the provided paths")
	}
	return files, nil
}

func collectDir(dirPath string) ([]LocalFile, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, err
	}

	var files []LocalFile
	for _, entry := range entries {
		childPath := filepath.Join(dirPath, entry.Name())

		if entry.IsDir() {
			found, err := collectDir(childPath)
			if err != nil {
				return nil, err
			}
			files = append(files, found...)
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}

		file, err := statFile(childPath)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}

	return files, nil
}

func statFile(path string) (LocalFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return LocalFile{}, err
	}
	return LocalFile{Path: path, Name: filepath.Base(path), Size: info.Size()}, nil
}
