package gstate

import (
	"sync"

	"github.com/sorbetgo/checker/internal/diag"
)

// FileRef is an index into GlobalState's file table.
type FileRef int32

// NoFile is the sentinel invalid FileRef.
const NoFile FileRef = 0

// File is a source unit (spec.md §3.1).
type File struct {
	Path       string
	Source     []byte
	Strictness diag.Level

	// ParseTree caches the external parser's output for this file so repeated
	// pipeline phases don't reparse (spec.md §3.1 "a cached parse-tree slot").
	// Stored as interface{} because the parser is an external collaborator
	// (internal/parsetree.Node) and gstate must not depend on it.
	ParseTree interface{}
}

// Loc is a byte-range location within a File, used pervasively by AST, CFG,
// and diagnostics. Every AST node other than EmptyTree carries one
// (spec.md §3.2).
type Loc struct {
	File       FileRef
	Begin, End int
	Line       int
}

type fileTable struct {
	mu    sync.Mutex
	files []*File
}

func newFileTable() *fileTable {
	return &fileTable{files: []*File{nil}} // index 0 reserved for NoFile
}

// AddFile registers a new source file and returns its FileRef.
func (g *GlobalState) AddFile(path string, source []byte, strictness diag.Level) FileRef {
	t := g.files
	t.mu.Lock()
	defer t.mu.Unlock()
	ref := FileRef(len(t.files))
	t.files = append(t.files, &File{Path: path, Source: source, Strictness: strictness})
	return ref
}

// File returns the File registered under ref.
func (g *GlobalState) File(ref FileRef) *File {
	t := g.files
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.files[ref]
}

// RenderLoc converts an in-process Loc into a diag.Loc suitable for
// human-readable error messages (path instead of FileRef).
func (g *GlobalState) RenderLoc(loc Loc) diag.Loc {
	path := "<unknown>"
	if loc.File != NoFile {
		path = g.File(loc.File).Path
	}
	return diag.Loc{File: path, Begin: loc.Begin, End: loc.End, Line: loc.Line}
}
