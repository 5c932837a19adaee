package patch

import "strings"

// Validate checks plan-wide and per-directive invariants without touching
// any store. It inspects the plan but never mutates it. Path ownership is
// tracked in the validator's own bookkeeping: when an Add/Rename/Copy
// directive is later modified by a Modify directive to the same new path,
// ownership of that path is upgraded so further writers are rejected.
//
// Three checks run per directive: path/operation rules with
// cross-directive bookkeeping, then intra-hunk shape rules, then metadata
// rules.
func Validate(p *Plan) error {
	v := &validator{
		seenOld:   make(map[string]bool),
		newOwners: make(map[string]Op),
	}
	for i := range p.Directives {
		d := &p.Directives[i]
		// Binary payloads are refused before anything else; the usual
		// content-shape rules do not apply to them.
		if d.Meta.IsBinary {
			return Validationf("binary patch for %q is not supported", d.Path())
		}
		if err := v.checkPaths(d); err != nil {
			return err
		}
		if err := checkHunks(d); err != nil {
			return err
		}
		if err := checkMetadata(d); err != nil {
			return err
		}
	}
	return nil
}

type validator struct {
	seenOld   map[string]bool // old paths consumed by Delete/Modify/Rename
	newOwners map[string]Op   // new paths produced by Add/Rename/Copy (or upgraded to Modify)
}

func (v *validator) claimOld(path string) error {
	if v.seenOld[path] {
		return Validationf("duplicate old path %q", path)
	}
	v.seenOld[path] = true
	return nil
}

func (v *validator) claimNew(path string, op Op) error {
	if owner, ok := v.newOwners[path]; ok {
		return Validationf("path %q already produced by a %s directive", path, owner)
	}
	v.newOwners[path] = op
	return nil
}

func (v *validator) checkPaths(d *Directive) error {
	switch d.Op {
	case OpAdd:
		if d.OldPath != "" {
			return Validationf("add directive must not carry an old path (%q)", d.OldPath)
		}
		if d.NewPath == "" {
			return Validationf("add directive requires a new path")
		}
		if err := v.claimNew(d.NewPath, OpAdd); err != nil {
			return err
		}
		if len(d.Hunks) == 0 {
			return Validationf("add directive for %q has no hunks", d.NewPath)
		}
	case OpDelete:
		if d.OldPath == "" {
			return Validationf("delete directive requires an old path")
		}
		if d.NewPath != "" {
			return Validationf("delete directive must not carry a new path (%q)", d.NewPath)
		}
		if err := v.claimOld(d.OldPath); err != nil {
			return err
		}
		if len(d.Hunks) == 0 {
			return Validationf("delete directive for %q has no hunks", d.OldPath)
		}
	case OpModify:
		if d.OldPath == "" {
			return Validationf("modify directive requires a path")
		}
		if d.NewPath != d.OldPath {
			return Validationf("modify directive paths differ: %q vs %q", d.OldPath, d.NewPath)
		}
		if err := v.claimOld(d.OldPath); err != nil {
			return err
		}
		// An Add/Rename/Copy followed by a Modify to the same new path is
		// the one permitted overlap; the owner is upgraded to Modify.
		if owner, ok := v.newOwners[d.NewPath]; ok {
			if owner == OpModify {
				return Validationf("path %q modified twice", d.NewPath)
			}
		}
		v.newOwners[d.NewPath] = OpModify
		if len(d.Hunks) == 0 {
			return Validationf("modify directive for %q has no hunks", d.OldPath)
		}
	case OpRename:
		if d.OldPath == "" || d.NewPath == "" {
			return Validationf("rename directive requires both paths")
		}
		if d.OldPath == d.NewPath {
			return Validationf("rename directive paths are identical: %q", d.OldPath)
		}
		if err := v.claimOld(d.OldPath); err != nil {
			return err
		}
		if err := v.claimNew(d.NewPath, OpRename); err != nil {
			return err
		}
	case OpCopy:
		if d.OldPath == "" || d.NewPath == "" {
			return Validationf("copy directive requires both paths")
		}
		if d.OldPath == d.NewPath {
			return Validationf("copy directive paths are identical: %q", d.OldPath)
		}
		if err := v.claimNew(d.NewPath, OpCopy); err != nil {
			return err
		}
	}
	return nil
}

func checkHunks(d *Directive) error {
	for i := range d.Hunks {
		if err := checkHunk(d, &d.Hunks[i]); err != nil {
			return err
		}
	}
	return nil
}

func checkHunk(d *Directive, h *Hunk) error {
	if len(h.Lines) == 0 {
		return Validationf("empty hunk in directive for %q", d.Path())
	}

	var additions, deletions, markers int
	for i, l := range h.Lines {
		switch l.Kind {
		case LineNoNewline:
			markers++
			if i != len(h.Lines)-1 {
				return Validationf("no-newline marker is not the final hunk line in directive for %q", d.Path())
			}
		case LineAddition:
			additions++
		case LineDeletion:
			deletions++
		}
		if strings.ContainsRune(l.Text, '\r') {
			return Validationf("carriage return in hunk line of directive for %q", d.Path())
		}
	}
	if markers > 1 {
		return Validationf("multiple no-newline markers in directive for %q", d.Path())
	}

	if h.OldRange != nil && h.OldRange.Len != h.OldCount() {
		return Validationf("hunk old range length %d does not match %d old-side lines in directive for %q",
			h.OldRange.Len, h.OldCount(), d.Path())
	}
	if h.NewRange != nil && h.NewRange.Len != h.NewCount() {
		return Validationf("hunk new range length %d does not match %d new-side lines in directive for %q",
			h.NewRange.Len, h.NewCount(), d.Path())
	}

	switch d.Op {
	case OpAdd:
		if h.OldCount() > 0 {
			return Validationf("add hunk for %q carries old-side lines", d.Path())
		}
		if additions == 0 {
			return Validationf("add hunk for %q has no additions", d.Path())
		}
	case OpDelete:
		if h.NewCount() > 0 {
			return Validationf("delete hunk for %q carries new-side lines", d.Path())
		}
		if deletions == 0 {
			return Validationf("delete hunk for %q has no deletions", d.Path())
		}
	default:
		if additions == 0 && deletions == 0 {
			return Validationf("hunk for %q changes nothing", d.Path())
		}
	}
	return nil
}

func checkMetadata(d *Directive) error {
	m := &d.Meta

	if m.RenameFrom != "" || m.RenameTo != "" {
		if d.Op != OpRename {
			return Validationf("rename metadata on a %s directive for %q", d.Op, d.Path())
		}
		if m.RenameFrom != "" && StripDiffPrefix(strings.TrimSpace(m.RenameFrom)) != d.OldPath {
			return Validationf("rename from %q does not match old path %q", m.RenameFrom, d.OldPath)
		}
		if m.RenameTo != "" && StripDiffPrefix(strings.TrimSpace(m.RenameTo)) != d.NewPath {
			return Validationf("rename to %q does not match new path %q", m.RenameTo, d.NewPath)
		}
	}
	if m.CopyFrom != "" || m.CopyTo != "" {
		if d.Op != OpCopy {
			return Validationf("copy metadata on a %s directive for %q", d.Op, d.Path())
		}
		if m.CopyFrom != "" && StripDiffPrefix(strings.TrimSpace(m.CopyFrom)) != d.OldPath {
			return Validationf("copy from %q does not match old path %q", m.CopyFrom, d.OldPath)
		}
		if m.CopyTo != "" && StripDiffPrefix(strings.TrimSpace(m.CopyTo)) != d.NewPath {
			return Validationf("copy to %q does not match new path %q", m.CopyTo, d.NewPath)
		}
	}

	if m.SimilarityIndex != nil || m.DissimilarityIndex != nil {
		if d.Op != OpRename && d.Op != OpCopy {
			return Validationf("similarity metadata on a %s directive for %q", d.Op, d.Path())
		}
		if m.SimilarityIndex != nil && (*m.SimilarityIndex < 0 || *m.SimilarityIndex > 100) {
			return Validationf("similarity index %d out of range", *m.SimilarityIndex)
		}
		if m.DissimilarityIndex != nil && (*m.DissimilarityIndex < 0 || *m.DissimilarityIndex > 100) {
			return Validationf("dissimilarity index %d out of range", *m.DissimilarityIndex)
		}
	}

	if m.ModeChange != nil {
		if d.Op == OpAdd && m.ModeChange.OldMode != "" {
			return Validationf("add directive for %q carries an old mode", d.Path())
		}
		if d.Op == OpDelete && m.ModeChange.NewMode != "" {
			return Validationf("delete directive for %q carries a new mode", d.Path())
		}
	}
	return nil
}
