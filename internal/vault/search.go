package vault

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/starford/opnvault/internal/models"
)

// Filter returns the files whose name or any tag contains query, ignoring
// case. A blank query matches everything. Order is preserved and files is
// not modified.
func Filter(files []models.VaultFile, query string) []models.VaultFile {
	if strings.TrimSpace(query) == "" {
		return files
	}
	fold := cases.Fold()
	q := fold.String(query)

	out := make([]models.VaultFile, 0, len(files))
	for _, f := range files {
		if matches(fold, f, q) {
			out = append(out, f)
		}
	}
	return out
}

func matches(fold cases.Caser, f models.VaultFile, q string) bool {
	if strings.Contains(fold.String(f.Name), q) {
		return true
	}
	for _, t := range f.Tags {
		if strings.Contains(fold.String(t), q) {
			return true
		}
	}
	return false
}

// SortByModified orders files most recently modified first, breaking ties by id.
func SortByModified(files []models.VaultFile) {
	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if !a.ModifiedAt.Equal(b.ModifiedAt) {
			return a.ModifiedAt.After(b.ModifiedAt)
		}
		return a.ID < b.ID
	})
}

// TotalSize sums the sizes of files.
func TotalSize(files []models.VaultFile) int64 {
	var total int64
	for _, f := range files {
		total += f.Size
	}
	return total
}
