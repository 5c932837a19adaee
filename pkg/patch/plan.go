// Package patch parses and validates sentinel-wrapped unified patches:
// a diff dialect bracketed by "*** Begin Patch" / "*** End Patch" markers
// carrying per-file directives, extended-header metadata, and hunks.
//
// [Tokenize] splits raw text into classified line tokens, [Parse]
// assembles them into a [Plan], and [Validate] enforces the semantic
// invariants a plan must satisfy before anything touches a store.
package patch

// Op is the file-level operation a directive performs.
type Op int

const (
	OpAdd Op = iota
	OpDelete
	OpModify
	OpRename
	OpCopy
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpDelete:
		return "delete"
	case OpModify:
		return "modify"
	case OpRename:
		return "rename"
	case OpCopy:
		return "copy"
	default:
		return "unknown"
	}
}

// LineKind tags a hunk body line.
type LineKind int

const (
	LineContext LineKind = iota
	LineAddition
	LineDeletion
	// LineNoNewline is the "\ No newline at end of file" marker. It carries
	// no text and may only appear as the final entry of a hunk.
	LineNoNewline
)

func (k LineKind) String() string {
	switch k {
	case LineContext:
		return "context"
	case LineAddition:
		return "addition"
	case LineDeletion:
		return "deletion"
	case LineNoNewline:
		return "no-newline marker"
	default:
		return "unknown"
	}
}

// Line is one entry of a hunk body. Text never contains '\n'; carriage
// returns are rejected by validation. Text is empty for LineNoNewline.
type Line struct {
	Kind LineKind
	Text string
}

// Range is a 1-based start plus a length in lines, as written in a hunk
// header. A missing length in the header defaults to 1.
type Range struct {
	Start int
	Len   int
}

// Hunk is a hunk header plus its body lines. Either range may be absent
// (a bare "@@" header carries neither). Section is the optional trailing
// heading after the closing "@@", kept for diagnostics only.
type Hunk struct {
	OldRange *Range
	NewRange *Range
	Section  string
	Lines    []Line
}

// OldCount returns the number of old-side lines (Context + Deletion).
func (h *Hunk) OldCount() int {
	n := 0
	for _, l := range h.Lines {
		if l.Kind == LineContext || l.Kind == LineDeletion {
			n++
		}
	}
	return n
}

// NewCount returns the number of new-side lines (Context + Addition).
func (h *Hunk) NewCount() int {
	n := 0
	for _, l := range h.Lines {
		if l.Kind == LineContext || l.Kind == LineAddition {
			n++
		}
	}
	return n
}

// IndexLine is a parsed "index <old>..<new>[ <mode>]" metadata line.
type IndexLine struct {
	OldHash string
	NewHash string
	Mode    string // empty when the line carried no mode
}

// FileModeChange records old/new file modes from metadata lines such as
// "old mode", "new mode", "new file mode", and "mode change". Modes are
// kept as the octal strings found in the patch; empty means absent.
type FileModeChange struct {
	OldMode string
	NewMode string
}

// Metadata is the parsed extended header block of a directive. RawLines
// preserves the original metadata lines in input order so a directive can
// be round-tripped.
type Metadata struct {
	Index              *IndexLine
	ModeChange         *FileModeChange
	SimilarityIndex    *int
	DissimilarityIndex *int
	RenameFrom         string
	RenameTo           string
	CopyFrom           string
	CopyTo             string
	IsBinary           bool
	RawLines           []string
}

// Directive is one file-level change. OldPath/NewPath are logical paths
// after "a/"-"b/" stripping; empty means absent (the "/dev/null" side).
// RawHeader is the "*** ..." header line the directive was introduced by,
// if any.
type Directive struct {
	Op        Op
	OldPath   string
	NewPath   string
	Hunks     []Hunk
	Meta      Metadata
	RawHeader string
}

// Path returns the path the directive primarily acts on: the new path when
// present, otherwise the old path.
func (d *Directive) Path() string {
	if d.NewPath != "" {
		return d.NewPath
	}
	return d.OldPath
}

// Plan is an ordered sequence of directives plus an optional title taken
// from the first header line encountered. Directives apply in plan order.
type Plan struct {
	Title      string
	Directives []Directive
}
