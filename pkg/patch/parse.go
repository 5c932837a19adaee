package patch

import (
	"regexp"
	"strconv"
	"strings"
)

// Parse tokenizes raw patch text and assembles the token stream into a
// Plan. The result is syntactically sound but not yet validated; callers
// run Validate before handing the plan to an applier.
func Parse(input string) (*Plan, error) {
	toks, err := Tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &planParser{toks: toks}
	return p.parse()
}

type planParser struct {
	toks []Token
	pos  int

	plan          Plan
	titleSet      bool
	pendingHeader string   // most recent "*** ..." header line
	pendingMeta   []string // metadata lines seen before the next directive
}

func (p *planParser) peek() (Token, bool) {
	if p.pos >= len(p.toks) {
		return Token{}, false
	}
	return p.toks[p.pos], true
}

func (p *planParser) next() (Token, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

func (p *planParser) parse() (*Plan, error) {
	for {
		t, ok := p.next()
		if !ok {
			break
		}
		switch t.Kind {
		case TokenBegin, TokenEnd:
			// Block delimiters carry no content.
		case TokenHeader:
			p.pendingHeader = t.Text
			if !p.titleSet {
				p.plan.Title = strings.TrimPrefix(t.Text, "*** ")
				p.titleSet = true
			}
		case TokenMetadata:
			p.pendingMeta = append(p.pendingMeta, t.Text)
		case TokenFileOld:
			if err := p.parseExplicitDirective(t); err != nil {
				return nil, err
			}
		case TokenHunkHeader:
			// A hunk with no ---/+++ block is an implicit directive whose
			// paths come from the pending header.
			if err := p.parseImplicitDirective(t); err != nil {
				return nil, err
			}
		case TokenHunkLine:
			if t.Text != "" {
				return nil, Malformedf("unexpected hunk line outside a hunk at line %d", t.LineNo)
			}
			// Blank lines between directives are tolerated.
		case TokenFileNew:
			return nil, Malformedf("+++ line without --- line at line %d", t.LineNo)
		case TokenOther:
			if t.Text == "GIT binary patch" {
				return nil, Validationf("binary patches are not supported (line %d)", t.LineNo)
			}
			return nil, Malformedf("unexpected line %d: %q", t.LineNo, t.Text)
		}
	}
	return &p.plan, nil
}

// parseExplicitDirective consumes a "--- "/"+++ " pair plus the metadata
// lines and hunks that follow, up to the next directive boundary.
func (p *planParser) parseExplicitDirective(oldTok Token) error {
	newTok, ok := p.next()
	if !ok || newTok.Kind != TokenFileNew {
		return Malformedf("expected +++ line after --- at line %d", oldTok.LineNo)
	}

	d := Directive{
		OldPath:   interpretPath(strings.TrimPrefix(oldTok.Text, "--- ")),
		NewPath:   interpretPath(strings.TrimPrefix(newTok.Text, "+++ ")),
		RawHeader: p.pendingHeader,
	}
	meta := p.pendingMeta
	p.pendingMeta = nil
	header := p.pendingHeader
	p.pendingHeader = ""

	if err := p.collectDirectiveBody(&d, &meta); err != nil {
		return err
	}
	if err := parseMetadataLines(&d.Meta, meta); err != nil {
		return err
	}
	d.Op = inferOp(header, d.OldPath, d.NewPath)
	p.plan.Directives = append(p.plan.Directives, d)
	return nil
}

// parseImplicitDirective handles a hunk header that appears with a pending
// "*** ..." header but no ---/+++ block. Paths and operation are inferred
// from the header text.
func (p *planParser) parseImplicitDirective(hunkTok Token) error {
	if p.pendingHeader == "" {
		return Malformedf("hunk header without a file header at line %d", hunkTok.LineNo)
	}

	header := p.pendingHeader
	p.pendingHeader = ""
	meta := p.pendingMeta
	p.pendingMeta = nil

	oldPath, newPath := pathsFromHeader(header)
	d := Directive{
		OldPath:   oldPath,
		NewPath:   newPath,
		RawHeader: header,
	}

	// The hunk header that triggered the directive opens its first hunk.
	h, err := p.parseHunk(hunkTok)
	if err != nil {
		return err
	}
	d.Hunks = append(d.Hunks, h)

	if err := p.collectDirectiveBody(&d, &meta); err != nil {
		return err
	}
	if err := parseMetadataLines(&d.Meta, meta); err != nil {
		return err
	}
	d.Op = inferOp(header, d.OldPath, d.NewPath)
	p.plan.Directives = append(p.plan.Directives, d)
	return nil
}

// collectDirectiveBody gathers metadata lines and hunks until the next
// "--- " token, the next "*** ..." header, or the end of the stream.
func (p *planParser) collectDirectiveBody(d *Directive, meta *[]string) error {
	for {
		t, ok := p.peek()
		if !ok {
			return nil
		}
		switch t.Kind {
		case TokenFileOld, TokenHeader, TokenBegin, TokenEnd:
			return nil
		case TokenMetadata:
			p.pos++
			*meta = append(*meta, t.Text)
		case TokenHunkHeader:
			p.pos++
			h, err := p.parseHunk(t)
			if err != nil {
				return err
			}
			d.Hunks = append(d.Hunks, h)
		case TokenHunkLine:
			if t.Text != "" {
				return Malformedf("hunk line without a hunk header at line %d", t.LineNo)
			}
			p.pos++
		case TokenFileNew:
			return Malformedf("unexpected +++ line at line %d", t.LineNo)
		case TokenOther:
			if t.Text == "GIT binary patch" {
				p.pos++
				d.Meta.IsBinary = true
				d.Meta.RawLines = append(d.Meta.RawLines, t.Text)
				continue
			}
			return Malformedf("unexpected line %d: %q", t.LineNo, t.Text)
		default:
			return nil
		}
	}
}

var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@(?: (.*))?$`)

// parseHunk parses a hunk header token plus the run of hunk lines that
// follows it.
func (p *planParser) parseHunk(headerTok Token) (Hunk, error) {
	h, err := parseHunkHeader(headerTok.Text, headerTok.LineNo)
	if err != nil {
		return Hunk{}, err
	}

	for {
		t, ok := p.peek()
		if !ok || t.Kind != TokenHunkLine {
			return h, nil
		}
		p.pos++
		line, err := parseHunkLine(t)
		if err != nil {
			return Hunk{}, err
		}
		h.Lines = append(h.Lines, line)
	}
}

// parseHunkHeader parses "@@ -oldStart[,oldLen] +newStart[,newLen] @@"
// with an optional trailing section heading. A bare "@@" is accepted and
// carries no ranges.
func parseHunkHeader(text string, lineNo int) (Hunk, error) {
	if text == "@@" {
		return Hunk{}, nil
	}
	m := hunkHeaderRe.FindStringSubmatch(text)
	if m == nil {
		return Hunk{}, Malformedf("invalid hunk header at line %d: %q", lineNo, text)
	}
	oldRange, err := parseRange(m[1], m[2], lineNo)
	if err != nil {
		return Hunk{}, err
	}
	newRange, err := parseRange(m[3], m[4], lineNo)
	if err != nil {
		return Hunk{}, err
	}
	return Hunk{OldRange: oldRange, NewRange: newRange, Section: m[5]}, nil
}

func parseRange(start, length string, lineNo int) (*Range, error) {
	s, err := strconv.Atoi(start)
	if err != nil {
		return nil, Malformedf("invalid hunk range at line %d", lineNo)
	}
	r := &Range{Start: s, Len: 1}
	if length != "" {
		n, err := strconv.Atoi(length)
		if err != nil {
			return nil, Malformedf("invalid hunk range at line %d", lineNo)
		}
		r.Len = n
	}
	return r, nil
}

const noNewlineMarker = `\ No newline at end of file`

func parseHunkLine(t Token) (Line, error) {
	if t.Text == noNewlineMarker {
		return Line{Kind: LineNoNewline}, nil
	}
	if t.Text == "" {
		return Line{}, Malformedf("empty hunk line at line %d", t.LineNo)
	}
	rest := t.Text[1:]
	switch t.Text[0] {
	case ' ':
		return Line{Kind: LineContext, Text: rest}, nil
	case '+':
		return Line{Kind: LineAddition, Text: rest}, nil
	case '-':
		return Line{Kind: LineDeletion, Text: rest}, nil
	}
	return Line{}, Malformedf("unexpected hunk line prefix at line %d: %q", t.LineNo, t.Text)
}

// interpretPath turns a "--- "/"+++ " payload into a logical path. The
// payload is trimmed, "/dev/null" denotes absence, and a Git-style "a/"
// or "b/" prefix is stripped.
func interpretPath(payload string) string {
	s := strings.TrimSpace(payload)
	if s == "/dev/null" {
		return ""
	}
	return StripDiffPrefix(s)
}

// StripDiffPrefix removes a leading "a/" or "b/" from a diff path.
func StripDiffPrefix(s string) string {
	if strings.HasPrefix(s, "a/") || strings.HasPrefix(s, "b/") {
		return s[2:]
	}
	return s
}

// inferOp determines the operation for a directive.
//
// Order matters: a header mentioning "copy" wins outright, then the
// presence and equality of the two paths decide. Both paths absent falls
// back to Modify, which validation will reject unless paths were filled
// in from an implicit header.
func inferOp(header, oldPath, newPath string) Op {
	if header != "" && strings.Contains(strings.ToLower(header), "copy") {
		return OpCopy
	}
	switch {
	case oldPath == "" && newPath != "":
		return OpAdd
	case oldPath != "" && newPath == "":
		return OpDelete
	case oldPath != "" && oldPath == newPath:
		return OpModify
	case oldPath != "" && newPath != "":
		return OpRename
	default:
		return OpModify
	}
}

// pathsFromHeader extracts paths from an implicit directive header such
// as "*** Update File: hello.txt" or "*** Rename File: old -> new".
func pathsFromHeader(header string) (oldPath, newPath string) {
	body := strings.TrimSpace(strings.TrimPrefix(header, "*** "))
	lower := strings.ToLower(body)

	payload := func(prefix string) string {
		rest := body[len(prefix):]
		rest = strings.TrimSpace(rest)
		rest = strings.TrimPrefix(rest, ":")
		return strings.TrimSpace(rest)
	}
	splitArrow := func(s string) (string, string) {
		from, to, ok := strings.Cut(s, "->")
		if !ok {
			return StripDiffPrefix(strings.TrimSpace(s)), ""
		}
		return StripDiffPrefix(strings.TrimSpace(from)), StripDiffPrefix(strings.TrimSpace(to))
	}

	switch {
	case strings.HasPrefix(lower, "add file"):
		return "", StripDiffPrefix(payload("add file"))
	case strings.HasPrefix(lower, "update file"):
		p := StripDiffPrefix(payload("update file"))
		return p, p
	case strings.HasPrefix(lower, "delete file"):
		return StripDiffPrefix(payload("delete file")), ""
	case strings.HasPrefix(lower, "rename file"):
		return splitArrow(payload("rename file"))
	case strings.HasPrefix(lower, "copy file"):
		return splitArrow(payload("copy file"))
	}
	return "", ""
}
