package analyzer

import (
	"regexp"
	"strings"

	"github.com/bobmcallan/finsight/internal/models"
)

// paragraphSeparator delimits answer paragraphs in the stream
const paragraphSeparator = "\n\n"

// maxCarry bounds the buffered tail held back while waiting for a
// possibly-split citation to complete
const maxCarry = 512

var (
	citationPattern = regexp.MustCompile(`\[([^\]]+)\]\(([^)]*)\)`)
	// a tail that could still become a complete citation once more
	// chunks arrive
	partialCitation = regexp.MustCompile(`^\[[^\]]*(?:\](?:\([^)]*)?)?$`)
)

// SourceMapper builds the paragraph-indexed source map while an answer
// streams. Chunks are fed in arrival order; each paragraph separator
// increments the paragraph counter, and each inline citation [name](url)
// is attributed to the paragraph of the text it follows. A citation seen
// with no new text since the last separator belongs to the previous
// paragraph: a citation is about the text it follows, not the text it
// precedes.
type SourceMapper struct {
	lookup map[string]string // bare source name -> URL enrichment

	sources []*models.ParagraphSource
	byKey   map[string]*models.ParagraphSource

	paragraph      int
	textSinceBreak bool
	carry          string
}

// NewSourceMapper creates a source mapper. lookup resolves bare source
// names to URLs and may be nil.
func NewSourceMapper(lookup map[string]string) *SourceMapper {
	return &SourceMapper{
		lookup: lookup,
		byKey:  make(map[string]*models.ParagraphSource),
	}
}

// Feed scans one answer chunk. Chunks may split citations and paragraph
// separators at any byte position.
func (m *SourceMapper) Feed(chunk string) {
	buf := m.carry + chunk
	m.carry = ""

	pos := 0
	for pos < len(buf) {
		rest := buf[pos:]
		sepIdx := strings.Index(rest, paragraphSeparator)
		loc := citationPattern.FindStringSubmatchIndex(rest)

		if sepIdx < 0 && loc == nil {
			break
		}

		if loc == nil || (sepIdx >= 0 && sepIdx < loc[0]) {
			m.noteText(rest[:sepIdx])
			m.paragraph++
			m.textSinceBreak = false
			pos += sepIdx + len(paragraphSeparator)
			continue
		}

		m.noteText(rest[:loc[0]])
		m.recordCitation(rest[loc[2]:loc[3]], rest[loc[4]:loc[5]])
		pos += loc[1]
	}

	m.holdTail(buf[pos:])
}

// holdTail decides how much of the unconsumed remainder must be buffered
// for the next chunk: a split citation or a lone trailing newline.
func (m *SourceMapper) holdTail(remainder string) {
	if remainder == "" {
		return
	}

	if open := strings.LastIndexByte(remainder, '['); open >= 0 {
		tail := remainder[open:]
		if len(tail) <= maxCarry && partialCitation.MatchString(tail) {
			m.noteText(remainder[:open])
			m.carry = tail
			return
		}
	}

	if strings.HasSuffix(remainder, "\n") {
		m.noteText(remainder[:len(remainder)-1])
		m.carry = "\n"
		return
	}

	m.noteText(remainder)
}

// Finish flushes any buffered tail and returns the consolidated map,
// sources ordered by first citation.
func (m *SourceMapper) Finish() []models.ParagraphSource {
	m.noteText(m.carry)
	m.carry = ""

	out := make([]models.ParagraphSource, len(m.sources))
	for i, src := range m.sources {
		out[i] = *src
	}
	return out
}

func (m *SourceMapper) noteText(s string) {
	if strings.TrimSpace(s) != "" {
		m.textSinceBreak = true
	}
}

// recordCitation attributes one citation to the current (or previous)
// paragraph. A source cited in several paragraphs accumulates indices;
// repeat citations within one paragraph are deduplicated.
func (m *SourceMapper) recordCitation(name, url string) {
	name = strings.TrimSpace(name)
	url = strings.TrimSpace(url)
	if url == "" && m.lookup != nil {
		url = m.lookup[name]
	}

	target := m.paragraph
	if !m.textSinceBreak && target > 0 {
		target--
	}

	key := url
	if key == "" {
		key = name
	}

	src, seen := m.byKey[key]
	if !seen {
		src = &models.ParagraphSource{Name: name, URL: url}
		m.byKey[key] = src
		m.sources = append(m.sources, src)
	}

	n := len(src.ParagraphIndices)
	if n == 0 || src.ParagraphIndices[n-1] != target {
		src.ParagraphIndices = append(src.ParagraphIndices, target)
	}
}
