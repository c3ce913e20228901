package service

import (
	"cmp"
	"slices"
)

// Sort keys accepted by SortFiles.
const (
	SortBySize       = "size"
	SortByUploadedAt = "uploadedAt"
)

// SortFiles returns a sorted copy of files. "size" sorts ascending by size,
// "uploadedAt" sorts most recent first; ties keep their input order. Any
// other key returns the files in input order. The input slice is never
// reordered.
func SortFiles(files []*File, sortKey string) []*File {
	out := slices.Clone(files)
	if out == nil {
		out = []*File{}
	}

	switch sortKey {
	case SortBySize:
		slices.SortStableFunc(out, func(a, b *File) int {
			return cmp.Compare(a.Size, b.Size)
		})
	case SortByUploadedAt:
		slices.SortStableFunc(out, func(a, b *File) int {
			return b.UploadedAt.Compare(a.UploadedAt)
		})
	}
	return out
}
