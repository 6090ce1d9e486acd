// Package segment turns raw text into the token stream the lexical index
// consumes, and into the token vector a query is matched against. Latin text
// is split on alphanumeric/underscore runs; text containing CJK code points
// is routed through bleve's CJK bigram filter in its overlapping "search
// mode" so that multi-character words still match on partial substrings.
package segment

import (
	"regexp"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	bleveunicode "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

var latinTokenRE = regexp.MustCompile(`[A-Za-z0-9_]+`)

// Segmenter is the CJK/Latin-aware token stream producer. It is stateless
// and safe for concurrent use; the zero value is ready to use.
type Segmenter struct {
	tokenizer analysis.Tokenizer
	bigram    analysis.TokenFilter
}

// New builds a Segmenter with its bleve tokenizer/filter chain constructed
// once, rather than per-call.
func New() *Segmenter {
	return &Segmenter{
		tokenizer: bleveunicode.NewUnicodeTokenizer(),
		bigram:    cjk.NewCJKBigramFilter(true), // true: also emit unigrams, maximizing recall
	}
}

var defaultSegmenter = New()

// SegmentForIndex returns the text to store in the lexical index for text.
func SegmentForIndex(text string) string { return defaultSegmenter.SegmentForIndex(text) }

// SegmentForQuery returns the token vector to match a query against the
// lexical index.
func SegmentForQuery(text string) []string { return defaultSegmenter.SegmentForQuery(text) }

// SegmentForIndex joins the segmented form of text with single spaces. Pure
// Latin/ASCII text is returned unchanged.
func (s *Segmenter) SegmentForIndex(text string) string {
	if !ContainsCJK(text) {
		return text
	}
	terms := s.tokenize(text)
	out := make([]byte, 0, len(text)+len(terms))
	for i, t := range terms {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, t...)
	}
	return string(out)
}

// SegmentForQuery returns the token vector used to build a match expression.
// Pure Latin/ASCII text is split on alphanumeric/underscore runs.
func (s *Segmenter) SegmentForQuery(text string) []string {
	if !ContainsCJK(text) {
		return latinTokenRE.FindAllString(text, -1)
	}
	return s.tokenize(text)
}

func (s *Segmenter) tokenize(text string) []string {
	stream := s.tokenizer.Tokenize([]byte(text))
	stream = s.bigram.Filter(stream)
	terms := make([]string, 0, len(stream))
	for _, tok := range stream {
		if len(tok.Term) == 0 {
			continue
		}
		terms = append(terms, string(tok.Term))
	}
	return terms
}

// ContainsCJK reports whether text has any code point in the CJK Unified
// Ideographs (U+4E00-U+9FFF) or CJK Unified Ideographs Extension A
// (U+3400-U+4DBF) ranges.
func ContainsCJK(text string) bool {
	for _, r := range text {
		if (r >= 0x4E00 && r <= 0x9FFF) || (r >= 0x3400 && r <= 0x4DBF) {
			return true
		}
	}
	return false
}
