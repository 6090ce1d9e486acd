package mutator

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/XingxingLi2017/memory-mcp/internal/segment"
)

// timestampLayout matches "YYYY-MM-DD HH:MM:SS UTC", derived from wall-clock
// time with no sub-second precision.
const timestampLayout = "2006-01-02 15:04:05 UTC"

// entry is one parsed ledger line: "- <content>( [ref:<evidence>])?( _(source: <source>)_)?( — <timestamp>)?"
type entry struct {
	Content      string
	EvidencePath string
	Source       string
	Timestamp    string
}

var entryLineRE = regexp.MustCompile(
	`^- (.+?)(?: \[ref:([^\]]+)\])?(?: _\(source: ([^)]+)\)_)?(?: — (.+))?$`,
)

// parseEntryLine parses one ledger line. ok is false for blank lines, the
// category header, or anything not matching the entry grammar.
func parseEntryLine(line string) (entry, bool) {
	if !strings.HasPrefix(line, "- ") {
		return entry{}, false
	}
	m := entryLineRE.FindStringSubmatch(line)
	if m == nil {
		return entry{}, false
	}
	return entry{Content: m[1], EvidencePath: m[2], Source: m[3], Timestamp: m[4]}, true
}

// formatEntryLine renders e back into the ledger's entry-line grammar.
func formatEntryLine(e entry) string {
	var b strings.Builder
	b.WriteString("- ")
	b.WriteString(e.Content)
	if e.EvidencePath != "" {
		fmt.Fprintf(&b, " [ref:%s]", e.EvidencePath)
	}
	if e.Source != "" {
		fmt.Fprintf(&b, " _(source: %s)_", e.Source)
	}
	if e.Timestamp != "" {
		fmt.Fprintf(&b, " — %s", e.Timestamp)
	}
	return b.String()
}

// nowTimestamp renders the current wall-clock time in the ledger's
// timestamp format.
func nowTimestamp() string {
	return time.Now().UTC().Format(timestampLayout)
}

var whitespaceRE = regexp.MustCompile(`\s+`)

// normalizeContent lowercases and collapses whitespace for exact-dedup
// comparison.
func normalizeContent(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return whitespaceRE.ReplaceAllString(s, " ")
}

// contentWords returns the set of content words (alphanumeric/CJK tokens of
// length >= 2, case-insensitive) used for word-overlap comparisons.
func contentWords(s string) map[string]bool {
	tokens := segment.SegmentForQuery(s)
	out := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		t = strings.ToLower(t)
		if len([]rune(t)) < 2 {
			continue
		}
		out[t] = true
	}
	return out
}

// wordOverlap returns the fraction of a's content words that also appear in
// b, in [0,1]. An empty a overlaps 0.
func wordOverlap(a, b string) float64 {
	wa := contentWords(a)
	if len(wa) == 0 {
		return 0
	}
	wb := contentWords(b)
	var shared int
	for w := range wa {
		if wb[w] {
			shared++
		}
	}
	return float64(shared) / float64(len(wa))
}
