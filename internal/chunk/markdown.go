package chunk

import (
	"regexp"
	"strings"
)

var headingRE = regexp.MustCompile(`^#{1,6}\s`)

type lineEntry struct {
	num  int
	text string
}

// chunkSlidingWindow implements the markdown/text strategy: walk lines
// accumulating a character budget, flush on ATX headings (keeping the
// heading with its content) or when the budget would overflow, and seed the
// next buffer with a tail-first overlap suffix of the flushed buffer.
func chunkSlidingWindow(text string, tokens int) []Chunk {
	if tokens <= 0 {
		tokens = 512
	}
	overlap := tokens / 8
	maxChars := tokens * 4
	if maxChars < 32 {
		maxChars = 32
	}
	overlapChars := overlap * 4

	lines := strings.Split(text, "\n")
	// A trailing newline ends the last line rather than starting a new one.
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	var chunks []Chunk
	var buf []lineEntry
	bufChars := 0

	flush := func() {
		if len(buf) == 0 {
			return
		}
		texts := make([]string, len(buf))
		for i, e := range buf {
			texts[i] = e.text
		}
		chunks = append(chunks, Chunk{
			StartLine: buf[0].num,
			EndLine:   buf[len(buf)-1].num,
			Text:      strings.Join(texts, "\n"),
		})
	}

	seedOverlap := func() {
		if overlapChars <= 0 || len(buf) == 0 {
			buf = nil
			bufChars = 0
			return
		}
		var seed []lineEntry
		seedChars := 0
		for i := len(buf) - 1; i >= 0; i-- {
			e := buf[i]
			cost := len(e.text) + 1
			if seedChars > 0 && seedChars+cost > overlapChars {
				break
			}
			seed = append([]lineEntry{e}, seed...)
			seedChars += cost
		}
		buf = seed
		bufChars = seedChars
	}

	for i, line := range lines {
		num := i + 1
		cost := len(line) + 1

		switch {
		case headingRE.MatchString(line) && len(buf) > 0:
			flush()
			buf = nil
			bufChars = 0
		case len(buf) > 0 && bufChars+cost > maxChars:
			flush()
			seedOverlap()
		}

		buf = append(buf, lineEntry{num: num, text: line})
		bufChars += cost
	}
	flush()

	return chunks
}
