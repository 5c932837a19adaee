package apply

import (
	"os"

	"go.uber.org/zap"

	"github.com/odvcencio/stitch/pkg/patch"
	"github.com/odvcencio/stitch/pkg/store"
)

// Whitespace selects how buffer lines are compared against hunk lines.
type Whitespace int

const (
	// WhitespaceExact compares lines verbatim.
	WhitespaceExact Whitespace = iota
	// WhitespaceIgnoreAll removes every Unicode whitespace code point
	// from both sides before comparing.
	WhitespaceIgnoreAll
)

// Options configure an Applier.
type Options struct {
	// Whitespace is the line-comparison mode. Default: exact.
	Whitespace Whitespace

	// ContextTolerance is how many leading/trailing context lines a hunk
	// may shed while searching for its anchor. Default: 0.
	ContextTolerance int

	// Logger receives per-directive tracing. nil disables tracing.
	Logger *zap.Logger
}

// Applier carries a validated plan out against a store, directive by
// directive in plan order. It holds no state across Apply calls; each
// directive owns its line buffer for just its own duration.
type Applier struct {
	store store.Store
	opts  Options
	log   *zap.Logger
}

// New creates an Applier over st.
func New(st store.Store, opts Options) *Applier {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Applier{store: st, opts: opts, log: log}
}

// Apply runs every directive of a validated plan. The first failure
// propagates; earlier directives keep their effect, so callers that need
// atomicity wrap the store (see store.Snapshotting).
func (a *Applier) Apply(p *patch.Plan) error {
	if err := patch.Validate(p); err != nil {
		return err
	}
	for i := range p.Directives {
		d := &p.Directives[i]
		a.log.Debug("applying directive",
			zap.String("op", d.Op.String()),
			zap.String("old", d.OldPath),
			zap.String("new", d.NewPath),
			zap.Int("hunks", len(d.Hunks)),
		)
		if err := a.applyDirective(d); err != nil {
			return err
		}
	}
	return nil
}

func (a *Applier) applyDirective(d *patch.Directive) error {
	switch d.Op {
	case patch.OpAdd:
		return a.applyAdd(d)
	case patch.OpDelete:
		return a.applyDelete(d)
	case patch.OpModify:
		return a.applyModify(d)
	case patch.OpRename:
		return a.applyRename(d)
	case patch.OpCopy:
		return a.applyCopy(d)
	}
	return patch.Validationf("unknown operation for %q", d.Path())
}

func (a *Applier) exists(path string) (bool, error) {
	ok, err := a.store.Exists(path)
	if err != nil {
		return false, wrapIO(err, "stat %q", path)
	}
	return ok, nil
}

func (a *Applier) load(path string) (*buffer, error) {
	data, err := a.store.Read(path)
	if err != nil {
		return nil, wrapIO(err, "read %q", path)
	}
	return loadBuffer(path, data)
}

func (a *Applier) write(path string, b *buffer) error {
	if err := a.store.Write(path, b.encode()); err != nil {
		return wrapIO(err, "write %q", path)
	}
	return nil
}

// applyHunks runs every hunk of d against b in order; each hunk sees the
// buffer the previous one produced.
func (a *Applier) applyHunks(d *patch.Directive, b *buffer) error {
	eq := lineEqual(a.opts.Whitespace)
	for i := range d.Hunks {
		t := newHunkTransform(&d.Hunks[i])
		if err := t.applyTo(b, a.opts.ContextTolerance, eq); err != nil {
			if pe, ok := err.(*patch.Error); ok {
				return patch.Validationf("%s in hunk %d of %q", pe.Msg, i+1, d.Path())
			}
			return err
		}
	}
	return nil
}

// applyAdd builds the new file purely from addition lines; the buffer
// starts with a trailing newline unless a no-newline marker clears it.
func (a *Applier) applyAdd(d *patch.Directive) error {
	exists, err := a.exists(d.NewPath)
	if err != nil {
		return err
	}
	if exists {
		return patch.Validationf("cannot add %q: file already exists", d.NewPath)
	}

	b := &buffer{hasTrailingNewline: true}
	for i := range d.Hunks {
		for _, l := range d.Hunks[i].Lines {
			switch l.Kind {
			case patch.LineAddition:
				b.lines = append(b.lines, l.Text)
			case patch.LineNoNewline:
				b.hasTrailingNewline = false
			default:
				return patch.Validationf("add hunk for %q carries a %s line", d.NewPath, l.Kind)
			}
		}
	}

	if err := a.write(d.NewPath, b); err != nil {
		return err
	}
	return a.applyModeFromMeta(d.NewPath, &d.Meta)
}

// applyDelete edits the file down to nothing, then removes it. A delete
// whose hunks leave lines behind is refused.
func (a *Applier) applyDelete(d *patch.Directive) error {
	exists, err := a.exists(d.OldPath)
	if err != nil {
		return err
	}
	if !exists {
		return patch.Validationf("cannot delete %q: file does not exist", d.OldPath)
	}

	b, err := a.load(d.OldPath)
	if err != nil {
		return err
	}
	if err := a.applyHunks(d, b); err != nil {
		return err
	}
	if len(b.lines) != 0 {
		return patch.Validationf("delete of %q leaves %d lines behind", d.OldPath, len(b.lines))
	}
	if err := a.store.Remove(d.OldPath); err != nil {
		return wrapIO(err, "remove %q", d.OldPath)
	}
	return nil
}

func (a *Applier) applyModify(d *patch.Directive) error {
	exists, err := a.exists(d.OldPath)
	if err != nil {
		return err
	}
	if !exists {
		return patch.Validationf("cannot modify %q: file does not exist", d.OldPath)
	}

	b, err := a.load(d.OldPath)
	if err != nil {
		return err
	}
	if err := a.applyHunks(d, b); err != nil {
		return err
	}
	if err := a.write(d.NewPath, b); err != nil {
		return err
	}
	return a.applyModeFromMeta(d.NewPath, &d.Meta)
}

// applyRename moves old to new, applying hunks in between when there are
// any. With no metadata mode the source's captured permissions carry
// over to the new path.
func (a *Applier) applyRename(d *patch.Directive) error {
	exists, err := a.exists(d.OldPath)
	if err != nil {
		return err
	}
	if !exists {
		return patch.Validationf("cannot rename %q: file does not exist", d.OldPath)
	}

	mode, hadMode, err := a.store.Permissions(d.OldPath)
	if err != nil {
		return wrapIO(err, "permissions of %q", d.OldPath)
	}

	if len(d.Hunks) == 0 {
		if err := a.store.Move(d.OldPath, d.NewPath); err != nil {
			return wrapIO(err, "move %q to %q", d.OldPath, d.NewPath)
		}
	} else {
		b, err := a.load(d.OldPath)
		if err != nil {
			return err
		}
		if err := a.applyHunks(d, b); err != nil {
			return err
		}
		if err := a.write(d.NewPath, b); err != nil {
			return err
		}
		if err := a.store.Remove(d.OldPath); err != nil {
			return wrapIO(err, "remove %q", d.OldPath)
		}
	}

	return a.applyModeOrRestore(d.NewPath, &d.Meta, mode, hadMode)
}

// applyCopy duplicates old at new, applying hunks when there are any.
func (a *Applier) applyCopy(d *patch.Directive) error {
	exists, err := a.exists(d.OldPath)
	if err != nil {
		return err
	}
	if !exists {
		return patch.Validationf("cannot copy %q: file does not exist", d.OldPath)
	}
	dstExists, err := a.exists(d.NewPath)
	if err != nil {
		return err
	}
	if dstExists {
		return patch.Validationf("cannot copy to %q: file already exists", d.NewPath)
	}

	mode, hadMode, err := a.store.Permissions(d.OldPath)
	if err != nil {
		return wrapIO(err, "permissions of %q", d.OldPath)
	}

	b, err := a.load(d.OldPath)
	if err != nil {
		return err
	}
	if err := a.applyHunks(d, b); err != nil {
		return err
	}
	if err := a.write(d.NewPath, b); err != nil {
		return err
	}

	return a.applyModeOrRestore(d.NewPath, &d.Meta, mode, hadMode)
}

// metaNewMode returns the mode string the metadata supplies for the new
// side of a directive, if any.
func metaNewMode(m *patch.Metadata) string {
	if m.ModeChange != nil && m.ModeChange.NewMode != "" {
		return m.ModeChange.NewMode
	}
	if m.Index != nil {
		return m.Index.Mode
	}
	return ""
}

func (a *Applier) applyModeFromMeta(path string, m *patch.Metadata) error {
	bits, ok := parseFileMode(metaNewMode(m))
	if !ok {
		return nil
	}
	if err := a.store.SetPermissions(path, store.FileModeFromPosix(bits)); err != nil {
		return wrapIO(err, "set permissions of %q", path)
	}
	return nil
}

func (a *Applier) applyModeOrRestore(path string, m *patch.Metadata, captured os.FileMode, hadCaptured bool) error {
	if bits, ok := parseFileMode(metaNewMode(m)); ok {
		if err := a.store.SetPermissions(path, store.FileModeFromPosix(bits)); err != nil {
			return wrapIO(err, "set permissions of %q", path)
		}
		return nil
	}
	if hadCaptured {
		if err := a.store.SetPermissions(path, captured); err != nil {
			return wrapIO(err, "set permissions of %q", path)
		}
	}
	return nil
}

// wrapIO folds a store error into the pipeline's IO kind, leaving errors
// that are already pipeline errors (sandbox rejections) untouched.
func wrapIO(err error, format string, args ...any) error {
	if _, ok := err.(*patch.Error); ok {
		return err
	}
	return patch.IOWrap(err, format, args...)
}
