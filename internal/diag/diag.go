// Package diag implements the error taxonomy of spec.md §6/§7: a stable
// numeric code per error class, a per-file MPSC queue, and the strictness
// gating that silences an error class below its minimum level.
//
// Grounded on gql/panic.go's Recover, which turns a panic into a
// github.com/grailbio/base/errors.Error for the "internal error" path;
// diag.Error itself (a coded, leveled diagnostic) has no teacher precedent
// since GQL panics with ad hoc formatted strings instead of tracking a
// taxonomy, so it is new code written in the teacher's idiom (plain structs,
// no reflection, github.com/pkg/errors for wrapping).
package diag

import (
	"fmt"
	"sync"

	"github.com/grailbio/base/log"
	pkgerrors "github.com/pkg/errors"
)

// Code is a stable, documented error code (spec.md §6).
type Code int

const (
	InternalError Code = 1001

	DesugarUnsupportedNode       Code = 3001
	DesugarNoConstantReassign    Code = 3002
	DesugarIntegerOutOfRange     Code = 3003
	DesugarFloatOutOfRange       Code = 3004
	DesugarInvalidSingletonDef   Code = 3005

	NamerIncludeMultipleParam Code = 4001
	NamerIncludeNotConstant   Code = 4002
	NamerIncludePassedBlock   Code = 4003
	NamerRedefinitionOfMethod Code = 4004

	ResolverUnresolvedConstant Code = 5001
	ResolverCyclicAncestors    Code = 5002

	CFGNoNextScope   Code = 6001
	CFGNoBreakScope  Code = 6002
	CFGNoRescueScope Code = 6003

	InferPinnedVariableMismatch       Code = 7001
	InferMethodArgumentMismatch       Code = 7002
	InferUnknownMethod                Code = 7003
	InferMethodArgumentCountMismatch  Code = 7004
	InferReturnTypeMismatch           Code = 7005
	InferDeadBranchInferencer         Code = 7006
	InferCastTypeMismatch             Code = 7007
	InferBareTypeUsage                Code = 7008
	InferIncompleteType               Code = 7009
	InferGlobalReassignmentTypeMismatch Code = 7010
	InferFieldReassignmentTypeMismatch  Code = 7011
)

// Level mirrors spec.md §6's file strictness sigil, lowest-to-highest.
type Level int

const (
	Ignore Level = iota
	None
	True
	Strict
	Strong
	Max
)

// Loc is a half-open byte range within a file.
type Loc struct {
	File       string
	Begin, End int
	Line       int
}

func (l Loc) String() string {
	if l.Line > 0 {
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	}
	return fmt.Sprintf("%s:%d-%d", l.File, l.Begin, l.End)
}

// Section is one labeled detail block attached to an Error, e.g. "Got Integer
// originating from foo.rb:3".
type Section struct {
	Header string
	Loc    Loc
}

// Error is a single user-facing diagnostic.
type Error struct {
	Code     Code
	Loc      Loc
	Message  string
	Sections []Section
	// MinLevel is the lowest file strictness at which this error class is
	// reported; below it the error is silenced (spec.md §7 "Silenced flag").
	MinLevel Level
	// Autocorrect, when non-nil, is recorded but never applied by the core
	// (spec.md §1: "Autocorrect application to filesystem" is out of scope).
	Autocorrect string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s (%d)", e.Loc, e.Message, e.Code)
	for _, s := range e.Sections {
		msg += fmt.Sprintf("\n    %s (%s)", s.Header, s.Loc)
	}
	return msg
}

// New creates an Error with MinLevel=True (the default: reported on any file
// that runs inference, i.e. "true" strictness or above).
func New(code Code, loc Loc, format string, args ...interface{}) *Error {
	return &Error{Code: code, Loc: loc, Message: fmt.Sprintf(format, args...), MinLevel: True}
}

// WithSection attaches a detail section and returns the receiver for chaining.
func (e *Error) WithSection(header string, loc Loc) *Error {
	e.Sections = append(e.Sections, Section{Header: header, Loc: loc})
	return e
}

// Queue is an MPSC error sink: concurrent file workers push; the driver
// drains and flushes per-file batches (spec.md §5 "Error queue is MPSC").
type Queue struct {
	mu      sync.Mutex
	byFile  map[string][]*Error
	order   []string
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{byFile: map[string][]*Error{}}
}

// Push enqueues err under its file, respecting the silencing rule: an error
// whose MinLevel exceeds the file's effective strictness is dropped.
func (q *Queue) Push(fileLevel Level, err *Error) {
	if fileLevel < err.MinLevel {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.byFile[err.Loc.File]; !ok {
		seen := false
		for _, f := range q.order {
			if f == err.Loc.File {
				seen = true
				break
			}
		}
		if !seen {
			q.order = append(q.order, err.Loc.File)
		}
	}
	q.byFile[err.Loc.File] = append(q.byFile[err.Loc.File], err)
}

// FlushFile removes and returns all errors queued for file, in push order.
// The driver calls this immediately after typechecking one file so that
// outputs for different files never interleave (spec.md §7).
func (q *Queue) FlushFile(file string) []*Error {
	q.mu.Lock()
	defer q.mu.Unlock()
	errs := q.byFile[file]
	delete(q.byFile, file)
	return errs
}

// PeekFile returns a copy of the errors currently queued for file, without
// removing them. Used by callers that need to check whether a particular
// code was pushed mid-phase (e.g. pipeline's internal-error fallback)
// without disturbing FlushFile's later whole-batch read.
func (q *Queue) PeekFile(file string) []*Error {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Error, len(q.byFile[file]))
	copy(out, q.byFile[file])
	return out
}

// Files returns the set of files that have ever had an error pushed, in
// first-push order.
func (q *Queue) Files() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.order))
	copy(out, q.order)
	return out
}

// Recover runs cb, turning any panic into an *Error with code InternalError wrapping the
// recovered value with a stack trace, via github.com/pkg/errors for context
// and github.com/grailbio/base/log for the crash record. Grounded on
// gql/panic.go's Recover.
func Recover(loc Loc, cb func()) (err *Error) {
	defer func() {
		if e := recover(); e != nil {
			wrapped := pkgerrors.Errorf("internal error: %v", e)
			log.Error.Printf("%s: %+v", loc, wrapped)
			err = New(InternalError, loc, "%v", wrapped)
			err.MinLevel = Ignore
		}
	}()
	cb()
	return nil
}
