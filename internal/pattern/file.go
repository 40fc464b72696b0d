package pattern

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/hilite/internal/style"
)

// File is the on-disk form of a pattern set:
//
//	name: c
//	extensions: [".c", ".h"]
//	styles:
//	  Comment: {fg: "8", italic: true}
//	patterns:
//	  - name: Plain
//	  - name: Comment
//	    kind: range
//	    start: '/\*'
//	    end: '\*/'
type File struct {
	Name       string                      `yaml:"name"`
	Extensions []string                    `yaml:"extensions"`
	Styles     map[string]style.Attributes `yaml:"styles"`
	Patterns   []Definition                `yaml:"patterns"`
}

// Load parses a pattern-set file.
func Load(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pattern file: %w", err)
	}
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse pattern file: %w", err)
	}
	if f.Name == "" {
		return nil, fmt.Errorf("parse pattern file: name is required")
	}
	return &f, nil
}

// LoadFS parses the pattern-set file at path in fsys.
func LoadFS(fsys fs.FS, path string) (*File, error) {
	fh, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = fh.Close() }()

	f, err := Load(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Compile compiles the file's definitions into a Set.
func (f *File) Compile(opts Options) (*Set, error) {
	return Compile(f.Name, f.Patterns, opts)
}

// StyleTable returns base with the file's styles layered on top.
func (f *File) StyleTable(base *style.Table) *style.Table {
	if len(f.Styles) == 0 {
		return base
	}
	return base.Merge(f.Styles)
}
