package extract

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/muesli/gitcha"
)

// Extensions lists the file types offered for reading.
var Extensions = []string{"*.txt", "*.pdf", "*.md", "*.markdown", "*.html", "*.htm"}

// File is a readable file found under a directory.
type File struct {
	Path    string // absolute
	Name    string // relative to the search root
	Ext     string // lower case, with dot
	Size    int64
	ModTime time.Time
}

// FindFiles lists readable files under dir, sorted by extension and then
// name. Unless all is set, files ignored by git are skipped.
func FindFiles(dir string, all bool) ([]File, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	var ch chan gitcha.SearchResult
	if all {
		ch, err = gitcha.FindAllFilesExcept(abs, Extensions, nil)
	} else {
		ch, err = gitcha.FindFilesExcept(abs, Extensions, nil)
	}
	if err != nil {
		return nil, err
	}

	var files []File
	for res := range ch {
		files = append(files, fileFromResult(abs, res))
	}
	SortFiles(files)
	return files, nil
}

// SortFiles orders files by extension, then by name, the order the picker
// shows them in.
func SortFiles(files []File) {
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Ext != files[j].Ext {
			return files[i].Ext < files[j].Ext
		}
		return files[i].Name < files[j].Name
	})
}

func fileFromResult(root string, res gitcha.SearchResult) File {
	name, err := filepath.Rel(root, res.Path)
	if err != nil {
		name = filepath.Base(res.Path)
	}
	f := File{
		Path: res.Path,
		Name: name,
		Ext:  strings.ToLower(filepath.Ext(res.Path)),
	}
	if res.Info != nil {
		f.Size = res.Info.Size()
		f.ModTime = res.Info.ModTime()
	} else if fi, err := os.Stat(res.Path); err == nil {
		f.Size = fi.Size()
		f.ModTime = fi.ModTime()
	}
	return f
}
