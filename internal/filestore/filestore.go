// Package filestore keeps uploaded logos and media and generated workbooks in
// one flat directory.
package filestore

import (
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/spf13/afero"
)

type Store struct {
	fs afero.Fs
}

func New(fs afero.Fs) *Store {
	return &Store{fs: fs}
}

// NewOS returns a store rooted at dir on the local disk, creating dir if needed.
func NewOS(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: create %s: %w", dir, err)
	}
	return New(afero.NewBasePathFs(afero.NewOsFs(), dir)), nil
}

func filePath(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("filestore: invalid file name %q", name)
	}
	return path.Join("/", name), nil
}

func (s *Store) Exists(name string) (bool, error) {
	p, err := filePath(name)
	if err != nil {
		return false, err
	}
	return afero.Exists(s.fs, p)
}

// List returns the names of files matching pattern, sorted by name.
func (s *Store) List(pattern *regexp.Regexp) ([]string, error) {
	infos, err := afero.ReadDir(s.fs, "/")
	if err != nil {
		return nil, fmt.Errorf("filestore: list: %w", err)
	}

	var names []string
	for _, fi := range infos {
		if fi.IsDir() || (pattern != nil && !pattern.MatchString(fi.Name())) {
			continue
		}
		names = append(names, fi.Name())
	}
	return names, nil
}

// Delete removes name. A missing file is not an error.
func (s *Store) Delete(name string) error {
	p, err := filePath(name)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("filestore: delete %s: %w", name, err)
	}
	return nil
}

func (s *Store) DeleteMatching(pattern *regexp.Regexp) error {
	names, err := s.List(pattern)
	if err != nil {
		return err
	}
	for _, n := range names {
		if err := s.Delete(n); err != nil {
			return err
		}
	}
	return nil
}

// Write creates or truncates name with the content of r.
func (s *Store) Write(name string, r io.Reader) error {
	p, err := filePath(name)
	if err != nil {
		return err
	}
	if err := afero.WriteReader(s.fs, p, r); err != nil {
		return fmt.Errorf("filestore: write %s: %w", name, err)
	}
	return nil
}

// Replace deletes every file matching pattern and then writes name.
func (s *Store) Replace(name string, pattern *regexp.Regexp, r io.Reader) error {
	if err := s.DeleteMatching(pattern); err != nil {
		return err
	}
	return s.Write(name, r)
}

func (s *Store) Open(name string) (io.ReadCloser, error) {
	p, err := filePath(name)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(p)
	if err != nil {
		return nil, fmt.Errorf("filestore: open %s: %w", name, err)
	}
	return f, nil
}
