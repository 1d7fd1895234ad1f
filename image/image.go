package image

import (
	"io"
	"log"
	"os"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/rstms/stablefs"
)

// Root is the sentinel every volume path starts with.
const Root = "."

type FileRecord struct {
	Name      string
	ShortName string
	Size      uint64
	Dir       bool
	Hidden    bool
	System    bool
	ReadOnly  bool
}

// ScanFiles returns a record for every entry below dir, depth first,
// with names anchored at the root sentinel.
func ScanFiles(dir stablefs.Directory) ([]FileRecord, error) {
	return walk(Root, dir)
}

func walk(prefix string, dir stablefs.Directory) ([]FileRecord, error) {
	records := []FileRecord{}
	for _, entry := range dir.Entries() {
		if entry.IsVolumeId() {
			continue
		}
		attr := entry.Attr()
		record := FileRecord{
			Name:      prefix + "/" + entry.Name(),
			ShortName: entry.ShortName(),
			Size:      entry.Size(),
			Dir:       attr&stablefs.AttrDirectory == stablefs.AttrDirectory,
			Hidden:    attr&stablefs.AttrHidden == stablefs.AttrHidden,
			System:    attr&stablefs.AttrSystem == stablefs.AttrSystem,
			ReadOnly:  attr&stablefs.AttrReadOnly == stablefs.AttrReadOnly,
		}
		records = append(records, record)
		if entry.IsDir() {
			subdir, err := entry.Dir()
			if err != nil {
				return nil, err
			}
			subRecords, err := walk(record.Name, subdir)
			if err != nil {
				return nil, err
			}
			records = append(records, subRecords...)
		}
	}
	return records, nil
}

// Mkdir returns the directory called name inside parent, creating it
// when it does not exist yet.
func Mkdir(parent stablefs.Directory, name string) (stablefs.Directory, error) {
	entry := parent.Entry(name)
	if entry == nil {
		var err error
		entry, err = parent.AddDirectory(name)
		if err != nil {
			return nil, err
		}
	}
	return entry.Dir()
}

// AddFile copies src into the file called name inside dir, replacing
// any previous content.
func AddFile(dir stablefs.Directory, name string, src io.Reader) (int64, error) {
	entry := dir.Entry(name)
	if entry == nil {
		var err error
		entry, err = dir.AddFile(name)
		if err != nil {
			return 0, err
		}
	}
	dst, err := entry.File()
	if err != nil {
		return 0, err
	}
	defer dst.Close()
	if err := dst.Truncate(0); err != nil {
		return 0, err
	}
	count, err := io.Copy(dst, src)
	if err != nil {
		return count, err
	}
	return count, dst.Sync()
}

// Import copies every file and directory below srcRoot on the host
// filesystem into dest. It returns the number of files written.
func Import(dest stablefs.Directory, src billy.Filesystem, srcRoot string) (int, error) {
	dirs := map[string]stablefs.Directory{"": dest}
	files := 0
	err := util.Walk(src, srcRoot, func(filename string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel := strings.Trim(strings.TrimPrefix(filename, srcRoot), "/")
		if rel == "" {
			return nil
		}
		parentPath, name := path.Split(rel)
		parent, ok := dirs[strings.TrimSuffix(parentPath, "/")]
		if !ok {
			return stablefs.PathErrorf(stablefs.ErrEntryNotFound, filename, "parent of %s was not imported", rel)
		}
		if info.IsDir() {
			dir, err := Mkdir(parent, name)
			if err != nil {
				return err
			}
			dirs[rel] = dir
			return nil
		}
		in, err := src.Open(filename)
		if err != nil {
			return err
		}
		defer in.Close()
		count, err := AddFile(parent, name, in)
		if err != nil {
			return err
		}
		log.Printf("import: %s (%d bytes)\n", rel, count)
		files++
		return nil
	})
	return files, err
}

// Export writes every file and directory below root onto the host
// filesystem under dstRoot. It returns the number of files written.
func Export(root stablefs.Directory, dst billy.Filesystem, dstRoot string) (int, error) {
	records, err := ScanFiles(root)
	if err != nil {
		return 0, err
	}
	if err := dst.MkdirAll(dstRoot, 0700); err != nil {
		return 0, err
	}
	files := 0
	for _, record := range records {
		target := dst.Join(dstRoot, strings.TrimPrefix(record.Name, Root+"/"))
		if record.Dir {
			if err := dst.MkdirAll(target, 0700); err != nil {
				return files, err
			}
			continue
		}
		if err := exportFile(root, record, dst, target); err != nil {
			return files, err
		}
		files++
	}
	return files, nil
}

func exportFile(root stablefs.Directory, record FileRecord, dst billy.Filesystem, target string) error {
	dirPath, name := path.Split(strings.TrimPrefix(record.Name, Root+"/"))
	dir, err := root.OpenDir(dirPath)
	if err != nil {
		return err
	}
	entry := dir.Entry(name)
	if entry == nil {
		return stablefs.PathErrorf(stablefs.ErrEntryNotFound, record.Name, "%s", name)
	}
	src, err := entry.File()
	if err != nil {
		return err
	}
	defer src.Close()
	out, err := dst.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer out.Close()
	count, err := io.Copy(out, src)
	if err != nil {
		return err
	}
	log.Printf("export: %s (%d bytes)\n", record.Name, count)
	return nil
}
