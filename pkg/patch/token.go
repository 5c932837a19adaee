package patch

import "strings"

// TokenKind classifies one input line.
type TokenKind int

const (
	TokenBegin TokenKind = iota
	TokenEnd
	TokenHeader
	TokenFileOld
	TokenFileNew
	TokenMetadata
	TokenHunkHeader
	TokenHunkLine
	TokenOther
)

// Token is one classified input line. Text is the full line without its
// terminating newline. LineNo is the 1-based position in the raw input,
// kept for diagnostics.
type Token struct {
	Kind   TokenKind
	Text   string
	LineNo int
}

const (
	beginMarker = "*** Begin Patch"
	endMarker   = "*** End Patch"
)

// metadataPrefixes are the extended-header prefixes the tokenizer
// recognizes, ordered longest-first so the parser can match greedily.
var metadataPrefixes = []string{
	"deleted file executable mode ",
	"new file executable mode ",
	"dissimilarity index ",
	"deleted file mode ",
	"similarity index ",
	"new file mode ",
	"Binary files ",
	"binary files ",
	"mode change ",
	"rename from ",
	"copy from ",
	"rename to ",
	"new mode ",
	"old mode ",
	"copy to ",
	"index ",
}

func isMetadataLine(line string) bool {
	for _, p := range metadataPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

// Tokenize splits raw patch text into a linear token stream.
//
// The tokenizer is a two-state machine: lines before the first begin
// marker are silently dropped; from a begin marker to the matching end
// marker every line is classified and emitted. A begin marker inside a
// patch is rejected as nested, an end marker outside one is rejected as
// stray, and input that ends while still inside a patch is rejected as
// missing its end marker.
func Tokenize(input string) ([]Token, error) {
	lines := strings.Split(input, "\n")
	if strings.HasSuffix(input, "\n") {
		// The final newline terminates the last line rather than opening
		// an empty one.
		lines = lines[:len(lines)-1]
	}

	var toks []Token
	inside := false
	sawBegin := false

	for i, line := range lines {
		no := i + 1
		switch {
		case line == beginMarker:
			if inside {
				return nil, Malformedf("nested begin marker at line %d", no)
			}
			inside = true
			sawBegin = true
			toks = append(toks, Token{Kind: TokenBegin, Text: line, LineNo: no})
		case line == endMarker:
			if !inside {
				return nil, Malformedf("end marker without begin marker at line %d", no)
			}
			inside = false
			toks = append(toks, Token{Kind: TokenEnd, Text: line, LineNo: no})
		case !inside:
			// Preamble and trailing chatter live outside the patch.
			continue
		default:
			toks = append(toks, Token{Kind: classifyLine(line), Text: line, LineNo: no})
		}
	}

	if inside {
		return nil, Malformedf("missing end marker")
	}
	if !sawBegin {
		return nil, Malformedf("missing begin marker")
	}
	return toks, nil
}

// classifyLine assigns a kind to a line inside a patch. Order matters:
// "--- " and "+++ " would otherwise read as deletion/addition hunk lines.
func classifyLine(line string) TokenKind {
	switch {
	case strings.HasPrefix(line, "*** "):
		return TokenHeader
	case strings.HasPrefix(line, "--- "):
		return TokenFileOld
	case strings.HasPrefix(line, "+++ "):
		return TokenFileNew
	case isMetadataLine(line):
		return TokenMetadata
	case strings.HasPrefix(line, "@@"):
		return TokenHunkHeader
	case line == "":
		return TokenHunkLine
	default:
		switch line[0] {
		case ' ', '+', '-', '\\':
			return TokenHunkLine
		}
		return TokenOther
	}
}
