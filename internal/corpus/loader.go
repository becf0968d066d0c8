package corpus

import (
	"archive/zip"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultRoot is where vectors live unless configured otherwise.
const DefaultRoot = "corpus/vectors"

const fileExt = ".ssz"

// Loader reads SSZ-encoded vectors from a directory.
type Loader struct {
	root  string
	limit int
}

// NewLoader returns a loader for root. A limit <= 0 disables the cap.
func NewLoader(root string, limit int) *Loader {
	return &Loader{root: root, limit: limit}
}

// Collect decodes every *.ssz file under the loader's root, in file name
// order, up to the limit.
func (l *Loader) Collect() ([]*Vector, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("corpus: read %s: %w", l.root, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var out []*Vector
	for _, name := range names {
		if l.limit > 0 && len(out) >= l.limit {
			break
		}
		raw, err := os.ReadFile(filepath.Join(l.root, name))
		if err != nil {
			return nil, fmt.Errorf("corpus: read %s: %w", name, err)
		}
		v := new(Vector)
		if err := v.UnmarshalSSZ(raw); err != nil {
			return nil, fmt.Errorf("corpus: decode %s: %w", name, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// FileName names a vector by the first 16 bytes of its hash tree root.
func FileName(v *Vector) (string, error) {
	root, err := v.HashTreeRoot()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(root[:16]) + fileExt, nil
}

// WriteDir stores vectors as individual files under dest.
func WriteDir(dest string, vectors []*Vector) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	for _, v := range vectors {
		name, raw, err := encode(v)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dest, name), raw, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// WriteZip stores vectors as entries of a zip archive at path.
func WriteZip(path string, vectors []*Vector) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return writeZip(f, vectors)
}

func writeZip(w io.Writer, vectors []*Vector) error {
	zipw := zip.NewWriter(w)
	for _, v := range vectors {
		name, raw, err := encode(v)
		if err != nil {
			return err
		}
		entry, err := zipw.Create(name)
		if err != nil {
			return err
		}
		if _, err := entry.Write(raw); err != nil {
			return err
		}
	}
	return zipw.Close()
}

func encode(v *Vector) (string, []byte, error) {
	name, err := FileName(v)
	if err != nil {
		return "", nil, fmt.Errorf("corpus: name vector: %w", err)
	}
	raw, err := v.MarshalSSZ()
	if err != nil {
		return "", nil, fmt.Errorf("corpus: encode vector: %w", err)
	}
	return name, raw, nil
}
