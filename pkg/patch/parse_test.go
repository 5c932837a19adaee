package patch

import (
	"reflect"
	"strings"
	"testing"
)

func mustParse(t *testing.T, input string) *Plan {
	t.Helper()
	plan, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return plan
}

// Test 1: An explicit modify directive with context, deletion, and
// addition lines parses into the expected shape.
func TestParse_ExplicitModify(t *testing.T) {
	plan := mustParse(t, strings.Join([]string{
		"*** Begin Patch",
		"--- a/hello.txt",
		"+++ b/hello.txt",
		"@@ -1,2 +1,2 @@",
		"-Hello",
		"+Hello there",
		" World",
		"*** End Patch",
	}, "\n")+"\n")

	if len(plan.Directives) != 1 {
		t.Fatalf("expected 1 directive, got %d", len(plan.Directives))
	}
	d := plan.Directives[0]
	if d.Op != OpModify {
		t.Errorf("op = %v, want modify", d.Op)
	}
	if d.OldPath != "hello.txt" || d.NewPath != "hello.txt" {
		t.Errorf("paths = %q, %q", d.OldPath, d.NewPath)
	}
	if len(d.Hunks) != 1 {
		t.Fatalf("expected 1 hunk, got %d", len(d.Hunks))
	}

	h := d.Hunks[0]
	if h.OldRange == nil || *h.OldRange != (Range{Start: 1, Len: 2}) {
		t.Errorf("old range = %+v", h.OldRange)
	}
	if h.NewRange == nil || *h.NewRange != (Range{Start: 1, Len: 2}) {
		t.Errorf("new range = %+v", h.NewRange)
	}
	want := []Line{
		{Kind: LineDeletion, Text: "Hello"},
		{Kind: LineAddition, Text: "Hello there"},
		{Kind: LineContext, Text: "World"},
	}
	if !reflect.DeepEqual(h.Lines, want) {
		t.Errorf("lines = %+v, want %+v", h.Lines, want)
	}
}

// Test 2: "/dev/null" sides drive add and delete inference.
func TestParse_DevNullSides(t *testing.T) {
	plan := mustParse(t, strings.Join([]string{
		"*** Begin Patch",
		"--- /dev/null",
		"+++ b/new.txt",
		"@@ -0,0 +1,1 @@",
		"+hello",
		"--- a/old.txt",
		"+++ /dev/null",
		"@@ -1,1 +0,0 @@",
		"-goodbye",
		"*** End Patch",
	}, "\n")+"\n")

	if len(plan.Directives) != 2 {
		t.Fatalf("expected 2 directives, got %d", len(plan.Directives))
	}
	if plan.Directives[0].Op != OpAdd || plan.Directives[0].NewPath != "new.txt" {
		t.Errorf("first directive = %v %q", plan.Directives[0].Op, plan.Directives[0].NewPath)
	}
	if plan.Directives[1].Op != OpDelete || plan.Directives[1].OldPath != "old.txt" {
		t.Errorf("second directive = %v %q", plan.Directives[1].Op, plan.Directives[1].OldPath)
	}
}

// Test 3: Distinct paths infer a rename; a header mentioning "copy"
// forces a copy regardless of paths.
func TestParse_RenameAndCopyInference(t *testing.T) {
	plan := mustParse(t, strings.Join([]string{
		"*** Begin Patch",
		"--- a/before.txt",
		"+++ b/after.txt",
		"*** Copy File: src.txt -> dst.txt",
		"--- a/src.txt",
		"+++ b/dst.txt",
		"*** End Patch",
	}, "\n")+"\n")

	if len(plan.Directives) != 2 {
		t.Fatalf("expected 2 directives, got %d", len(plan.Directives))
	}
	if plan.Directives[0].Op != OpRename {
		t.Errorf("first op = %v, want rename", plan.Directives[0].Op)
	}
	if plan.Directives[1].Op != OpCopy {
		t.Errorf("second op = %v, want copy", plan.Directives[1].Op)
	}
}

// Test 4: Implicit directives take their paths from the pending header.
func TestParse_ImplicitDirectives(t *testing.T) {
	plan := mustParse(t, strings.Join([]string{
		"*** Begin Patch",
		"*** Add File: greet.txt",
		"@@",
		"+Hello",
		"+World",
		"*** Update File: hello.txt",
		"@@ -1,1 +1,1 @@",
		"-old",
		"+new",
		"*** Delete File: obsolete.txt",
		"@@ -1,1 +0,0 @@",
		"-gone",
		"*** Rename File: foo.txt -> bar.txt",
		"@@ -1,1 +1,1 @@",
		"-foo",
		"+bar",
		"*** End Patch",
	}, "\n")+"\n")

	if len(plan.Directives) != 4 {
		t.Fatalf("expected 4 directives, got %d", len(plan.Directives))
	}

	d := plan.Directives[0]
	if d.Op != OpAdd || d.NewPath != "greet.txt" || d.OldPath != "" {
		t.Errorf("add directive = %v %q %q", d.Op, d.OldPath, d.NewPath)
	}
	if d.Hunks[0].OldRange != nil || d.Hunks[0].NewRange != nil {
		t.Errorf("bare @@ should carry no ranges: %+v", d.Hunks[0])
	}

	d = plan.Directives[1]
	if d.Op != OpModify || d.OldPath != "hello.txt" || d.NewPath != "hello.txt" {
		t.Errorf("update directive = %v %q %q", d.Op, d.OldPath, d.NewPath)
	}

	d = plan.Directives[2]
	if d.Op != OpDelete || d.OldPath != "obsolete.txt" || d.NewPath != "" {
		t.Errorf("delete directive = %v %q %q", d.Op, d.OldPath, d.NewPath)
	}

	d = plan.Directives[3]
	if d.Op != OpRename || d.OldPath != "foo.txt" || d.NewPath != "bar.txt" {
		t.Errorf("rename directive = %v %q %q", d.Op, d.OldPath, d.NewPath)
	}
}

// Test 5: The plan title is the first header line encountered.
func TestParse_TitleFromFirstHeader(t *testing.T) {
	plan := mustParse(t, strings.Join([]string{
		"*** Begin Patch",
		"*** Fix greeting",
		"--- a/hello.txt",
		"+++ b/hello.txt",
		"@@ -1,1 +1,1 @@",
		"-Hello",
		"+Hi",
		"*** End Patch",
	}, "\n")+"\n")

	if plan.Title != "Fix greeting" {
		t.Errorf("title = %q, want %q", plan.Title, "Fix greeting")
	}
}

// Test 6: Hunk header variations — missing lengths default to 1, and a
// trailing section heading is captured.
func TestParse_HunkHeaderForms(t *testing.T) {
	plan := mustParse(t, strings.Join([]string{
		"*** Begin Patch",
		"--- a/x.txt",
		"+++ b/x.txt",
		"@@ -3 +4 @@ func main()",
		"-a",
		"+b",
		"*** End Patch",
	}, "\n")+"\n")

	h := plan.Directives[0].Hunks[0]
	if h.OldRange == nil || *h.OldRange != (Range{Start: 3, Len: 1}) {
		t.Errorf("old range = %+v", h.OldRange)
	}
	if h.NewRange == nil || *h.NewRange != (Range{Start: 4, Len: 1}) {
		t.Errorf("new range = %+v", h.NewRange)
	}
	if h.Section != "func main()" {
		t.Errorf("section = %q", h.Section)
	}
}

// Test 7: Malformed inputs are rejected with malformed errors.
func TestParse_MalformedInputs(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "missing +++ line",
			input: "*** Begin Patch\n--- a/x.txt\n@@ -1,1 +1,1 @@\n-a\n+b\n*** End Patch\n",
		},
		{
			name:  "bad hunk header",
			input: "*** Begin Patch\n--- a/x.txt\n+++ b/x.txt\n@@ bogus @@\n-a\n+b\n*** End Patch\n",
		},
		{
			name:  "empty hunk body line",
			input: "*** Begin Patch\n--- a/x.txt\n+++ b/x.txt\n@@ -1,1 +1,1 @@\n-a\n\n+b\n*** End Patch\n",
		},
		{
			name:  "unexpected prefix",
			input: "*** Begin Patch\n--- a/x.txt\n+++ b/x.txt\nwat is this\n*** End Patch\n",
		},
		{
			name:  "hunk without any header",
			input: "*** Begin Patch\n@@ -1,1 +1,1 @@\n-a\n+b\n*** End Patch\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.input)
			if err == nil {
				t.Fatal("expected parse error")
			}
			if !IsMalformed(err) {
				t.Errorf("expected malformed error, got %v", err)
			}
		})
	}
}

// Test 8: Metadata lines parse into structured fields and the raw lines
// round-trip losslessly in input order.
func TestParse_MetadataRoundTrip(t *testing.T) {
	rawMeta := []string{
		"similarity index 95%",
		"rename from a/before.txt",
		"rename to b/after.txt",
		"index 0123abc..4567def 100755",
	}
	plan := mustParse(t, strings.Join([]string{
		"*** Begin Patch",
		rawMeta[0],
		rawMeta[1],
		rawMeta[2],
		rawMeta[3],
		"--- a/before.txt",
		"+++ b/after.txt",
		"*** End Patch",
	}, "\n")+"\n")

	d := plan.Directives[0]
	if d.Op != OpRename {
		t.Fatalf("op = %v, want rename", d.Op)
	}
	m := d.Meta
	if m.SimilarityIndex == nil || *m.SimilarityIndex != 95 {
		t.Errorf("similarity index = %v", m.SimilarityIndex)
	}
	if m.RenameFrom != "a/before.txt" || m.RenameTo != "b/after.txt" {
		t.Errorf("rename metadata = %q -> %q", m.RenameFrom, m.RenameTo)
	}
	if m.Index == nil || m.Index.OldHash != "0123abc" || m.Index.NewHash != "4567def" || m.Index.Mode != "100755" {
		t.Errorf("index = %+v", m.Index)
	}
	if !reflect.DeepEqual(m.RawLines, rawMeta) {
		t.Errorf("raw lines = %v, want %v", m.RawLines, rawMeta)
	}
}

// Test 9: Mode change metadata splits on its arrow separator.
func TestParse_ModeChangeMetadata(t *testing.T) {
	plan := mustParse(t, strings.Join([]string{
		"*** Begin Patch",
		"mode change 100644 => 100755",
		"--- a/x.txt",
		"+++ b/x.txt",
		"@@ -1,1 +1,1 @@",
		"-a",
		"+b",
		"*** End Patch",
	}, "\n")+"\n")

	mc := plan.Directives[0].Meta.ModeChange
	if mc == nil || mc.OldMode != "100644" || mc.NewMode != "100755" {
		t.Errorf("mode change = %+v", mc)
	}
}

// Test 10: Binary metadata is flagged during parsing and rejected by
// validation; a standalone "GIT binary patch" line fails immediately.
func TestParse_BinaryRejection(t *testing.T) {
	plan := mustParse(t, strings.Join([]string{
		"*** Begin Patch",
		"Binary files a/img.png and b/img.png differ",
		"--- a/img.png",
		"+++ b/img.png",
		"*** End Patch",
	}, "\n")+"\n")

	if !plan.Directives[0].Meta.IsBinary {
		t.Error("expected binary flag on directive")
	}
	err := Validate(plan)
	if err == nil || !IsValidation(err) {
		t.Fatalf("expected validation error for binary directive, got %v", err)
	}

	_, err = Parse(strings.Join([]string{
		"*** Begin Patch",
		"GIT binary patch",
		"*** End Patch",
	}, "\n") + "\n")
	if err == nil || !IsValidation(err) {
		t.Fatalf("expected validation error for GIT binary patch, got %v", err)
	}
}

// Test 11: The no-newline marker becomes its own line kind.
func TestParse_NoNewlineMarker(t *testing.T) {
	plan := mustParse(t, strings.Join([]string{
		"*** Begin Patch",
		"*** Add File: raw.txt",
		"@@",
		"+no trailing newline",
		`\ No newline at end of file`,
		"*** End Patch",
	}, "\n")+"\n")

	lines := plan.Directives[0].Hunks[0].Lines
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[1].Kind != LineNoNewline {
		t.Errorf("last line kind = %v, want no-newline marker", lines[1].Kind)
	}
}
