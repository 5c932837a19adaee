package patch

import (
	"strconv"
	"strings"
)

// parseMetadataLines folds raw extended-header lines into m. Lines are
// matched longest-prefix-first against the recognized keys; the value is
// the trimmed remainder. The raw lines are preserved in input order.
func parseMetadataLines(m *Metadata, lines []string) error {
	for _, line := range lines {
		m.RawLines = append(m.RawLines, line)
		if err := parseMetadataLine(m, line); err != nil {
			return err
		}
	}
	return nil
}

func parseMetadataLine(m *Metadata, line string) error {
	for _, prefix := range metadataPrefixes {
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		value := strings.TrimSpace(line[len(prefix):])
		return applyMetadataValue(m, strings.TrimSuffix(prefix, " "), value)
	}
	return Malformedf("unrecognized metadata line: %q", line)
}

func applyMetadataValue(m *Metadata, key, value string) error {
	switch key {
	case "index":
		idx, err := parseIndexLine(value)
		if err != nil {
			return err
		}
		m.Index = idx
	case "old mode", "deleted file mode", "deleted file executable mode":
		modeChange(m).OldMode = value
	case "new mode", "new file mode", "new file executable mode":
		modeChange(m).NewMode = value
	case "mode change":
		oldMode, newMode, err := parseModeChange(value)
		if err != nil {
			return err
		}
		mc := modeChange(m)
		mc.OldMode = oldMode
		mc.NewMode = newMode
	case "similarity index":
		n, err := parsePercentage(value)
		if err != nil {
			return Malformedf("invalid similarity index: %q", value)
		}
		m.SimilarityIndex = &n
	case "dissimilarity index":
		n, err := parsePercentage(value)
		if err != nil {
			return Malformedf("invalid dissimilarity index: %q", value)
		}
		m.DissimilarityIndex = &n
	case "rename from":
		m.RenameFrom = value
	case "rename to":
		m.RenameTo = value
	case "copy from":
		m.CopyFrom = value
	case "copy to":
		m.CopyTo = value
	case "Binary files", "binary files":
		m.IsBinary = true
	}
	return nil
}

func modeChange(m *Metadata) *FileModeChange {
	if m.ModeChange == nil {
		m.ModeChange = &FileModeChange{}
	}
	return m.ModeChange
}

// parseIndexLine parses "<oldhash>..<newhash>[ <mode>]".
func parseIndexLine(value string) (*IndexLine, error) {
	hashes, mode, _ := strings.Cut(value, " ")
	oldHash, newHash, ok := strings.Cut(hashes, "..")
	if !ok {
		return nil, Malformedf("invalid index line: %q", value)
	}
	return &IndexLine{
		OldHash: oldHash,
		NewHash: newHash,
		Mode:    strings.TrimSpace(mode),
	}, nil
}

// parseModeChange parses "<old> => <new>", tolerating any run of spaces,
// '=' and '>' as the separator.
func parseModeChange(value string) (string, string, error) {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ' ' || r == '=' || r == '>'
	})
	if len(fields) != 2 {
		return "", "", Malformedf("invalid mode change line: %q", value)
	}
	return fields[0], fields[1], nil
}

func parsePercentage(value string) (int, error) {
	return strconv.Atoi(strings.TrimSuffix(value, "%"))
}
