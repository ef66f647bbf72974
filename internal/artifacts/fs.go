package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const descSuffix = ".desc.json"

// Filesystem stores artifacts as files under a root directory, one file per
// artifact plus a descriptor sidecar. Ref validation keeps every path inside
// the root.
type Filesystem struct {
	root string
}

// NewFilesystem returns a filesystem store rooted at path, creating the
// directory if needed. An empty path defaults to ./reportdata.
func NewFilesystem(root string) (*Filesystem, error) {
	if root == "" {
		root = "./reportdata"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Filesystem{root: root}, nil
}

func (s *Filesystem) Driver() Driver { return DriverFilesystem }

func (s *Filesystem) path(ref Ref) string {
	return filepath.Join(s.root, ref.Kind, ref.ReportID+"."+ref.Format)
}

func (s *Filesystem) Save(_ context.Context, ref Ref, payload []byte, contentType string, rows int) (Descriptor, error) {
	if err := ref.validate(); err != nil {
		return Descriptor{}, err
	}
	path := s.path(ref)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Descriptor{}, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Descriptor{}, err
	}
	_, werr := f.Write(payload)
	cerr := f.Close()
	if werr != nil {
		return Descriptor{}, werr
	}
	if cerr != nil {
		return Descriptor{}, cerr
	}
	desc := Descriptor{
		Ref:         ref,
		ContentType: contentType,
		SizeBytes:   int64(len(payload)),
		Rows:        rows,
		StoredAt:    time.Now().UTC(),
		Location:    path,
	}
	raw, err := json.Marshal(desc)
	if err != nil {
		return Descriptor{}, err
	}
	if err := os.WriteFile(path+descSuffix, raw, 0o644); err != nil {
		return Descriptor{}, err
	}
	return desc, nil
}

func (s *Filesystem) Open(_ context.Context, ref Ref) (Descriptor, io.ReadCloser, error) {
	if err := ref.validate(); err != nil {
		return Descriptor{}, nil, err
	}
	path := s.path(ref)
	desc, err := readDescriptor(path + descSuffix)
	if errors.Is(err, fs.ErrNotExist) {
		return Descriptor{}, nil, ErrNotFound
	}
	if err != nil {
		return Descriptor{}, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return Descriptor{}, nil, err
	}
	return desc, f, nil
}

func (s *Filesystem) List(_ context.Context, kind string) ([]Descriptor, error) {
	dir := filepath.Join(s.root, kind)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var descs []Descriptor
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), descSuffix) {
			continue
		}
		desc, err := readDescriptor(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		descs = append(descs, desc)
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].Ref.Key() < descs[j].Ref.Key() })
	return descs, nil
}

func (s *Filesystem) Remove(_ context.Context, ref Ref) (bool, error) {
	if err := ref.validate(); err != nil {
		return false, err
	}
	path := s.path(ref)
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	_ = os.Remove(path + descSuffix)
	return true, nil
}

func readDescriptor(path string) (Descriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, err
	}
	var desc Descriptor
	if err := json.Unmarshal(raw, &desc); err != nil {
		return Descriptor{}, err
	}
	return desc, nil
}
