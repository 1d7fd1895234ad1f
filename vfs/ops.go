package vfs

import (
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rstms/stablefs"
)

// List returns the names in the directory at path, sorted.
func (s *Service) List(path string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	root, err := s.root()
	if err != nil {
		return nil, err
	}
	dir, err := resolveDirectory(root, path)
	if err != nil {
		return nil, err
	}
	names := []string{}
	for _, entry := range dir.Entries() {
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// ListRootSizes returns the size of each root entry in directory order.
func (s *Service) ListRootSizes() ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	root, err := s.root()
	if err != nil {
		return nil, err
	}
	sizes := []uint64{}
	for _, entry := range root.Entries() {
		sizes = append(sizes, entry.Size())
	}
	return sizes, nil
}

func (s *Service) ReadWhole(path string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readText(path, 0)
}

// ReadLines returns the file's lines without their terminators. A
// trailing newline does not produce an empty last line.
func (s *Service) ReadLines(path string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, err := s.readText(path, 0)
	if err != nil {
		return nil, err
	}
	lines := []string{}
	if text == "" {
		return lines, nil
	}
	for _, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		lines = append(lines, strings.TrimSuffix(line, "\r"))
	}
	return lines, nil
}

// ReadFromOffset returns the text from byte offset to the end of the
// file, or "" when offset is at or past the end.
func (s *Service) ReadFromOffset(path string, offset uint64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readText(path, offset)
}

func (s *Service) MakeDirectory(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dir, name, err := s.container(path)
	if err != nil {
		return err
	}
	_, err = dir.AddDirectory(name)
	return withPath(err, path)
}

func (s *Service) Remove(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dir, name, err := s.container(path)
	if err != nil {
		return err
	}
	return withPath(dir.Remove(name), path)
}

// Append writes content at the end of the file, creating it first
// when needed.
func (s *Service) Append(path, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.openFile(path, true)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	if _, err := f.Write([]byte(content)); err != nil {
		return withPath(err, path)
	}
	return f.Sync()
}

// Overwrite replaces the file's content, creating it first when needed.
func (s *Service) Overwrite(path, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.openFile(path, true)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := f.Write([]byte(content)); err != nil {
		return withPath(err, path)
	}
	return f.Sync()
}

func (s *Service) container(path string) (stablefs.Directory, string, error) {
	root, err := s.root()
	if err != nil {
		return nil, "", err
	}
	return resolveEntry(root, path)
}

func (s *Service) openFile(path string, create bool) (stablefs.File, error) {
	dir, name, err := s.container(path)
	if err != nil {
		return nil, err
	}
	entry := dir.Entry(name)
	if entry == nil {
		if !create {
			return nil, stablefs.PathErrorf(stablefs.ErrEntryNotFound, path, "%s", name)
		}
		entry, err = dir.AddFile(name)
		if err != nil {
			return nil, withPath(err, path)
		}
	}
	f, err := entry.File()
	if err != nil {
		return nil, withPath(err, path)
	}
	return f, nil
}

func (s *Service) readText(path string, offset uint64) (string, error) {
	f, err := s.openFile(path, false)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if offset >= f.Size() {
		return "", nil
	}
	if _, err := f.Seek(int64(offset), io.SeekStart); err != nil {
		return "", err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", stablefs.PathErrorf(stablefs.ErrTextDecode, path, "%d bytes at offset %d", len(data), offset)
	}
	return string(data), nil
}
