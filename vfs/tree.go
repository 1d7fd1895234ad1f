package vfs

import (
	"github.com/go-git/go-billy/v5"

	"github.com/rstms/stablefs"
	"github.com/rstms/stablefs/image"
)

// Tree returns every path on the volume, depth first.
func (s *Service) Tree() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	root, err := s.root()
	if err != nil {
		return nil, err
	}
	records, err := image.ScanFiles(root)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(records))
	for i, record := range records {
		paths[i] = record.Name
	}
	return paths, nil
}

// Info reports storage usage, and volume geometry once mounted.
func (s *Service) Info() (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := map[string]any{}
	if s.fs != nil {
		var err error
		info, err = s.fs.Info()
		if err != nil {
			return nil, err
		}
	}
	info["mounted"] = s.fs != nil
	info["storage_pages"] = s.device.Size()
	info["storage_bytes"] = s.device.Size() * stablefs.PageSize
	info["page_size"] = stablefs.PageSize
	return info, nil
}

// Import copies srcRoot from the host filesystem into the directory at
// dest, returning the number of files written.
func (s *Service) Import(src billy.Filesystem, srcRoot, dest string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	root, err := s.root()
	if err != nil {
		return 0, err
	}
	dir, err := resolveDirectory(root, dest)
	if err != nil {
		return 0, err
	}
	return image.Import(dir, src, srcRoot)
}

// Export copies the whole volume into dstRoot on the host filesystem.
func (s *Service) Export(dst billy.Filesystem, dstRoot string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	root, err := s.root()
	if err != nil {
		return 0, err
	}
	return image.Export(root, dst, dstRoot)
}
