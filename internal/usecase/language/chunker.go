package language

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Chunk is one natural sub-sentence of an overlong utterance
type Chunk struct {
	Text   string `json:"text"`
	Index  int    `json:"index"`
	IsLast bool   `json:"is_last"`
}

// Chunker splits overlong utterances into natural units for downstream
// consumers (caption rendering, speech synthesis queues). It is independent
// of translation and buffering.
type Chunker struct {
	noChunkLen int // at or below this, text passes through unchanged
	maxLen     int // hard ceiling per chunk
	minLen     int // chunks below this merge into a neighbor
}

// NewChunker creates a Chunker with production defaults
func NewChunker() *Chunker {
	return &Chunker{
		noChunkLen: 80,
		maxLen:     120,
		minLen:     12,
	}
}

// NewChunkerWithLimits creates a Chunker with explicit limits
func NewChunkerWithLimits(noChunkLen, maxLen, minLen int) *Chunker {
	return &Chunker{
		noChunkLen: noChunkLen,
		maxLen:     maxLen,
		minLen:     minLen,
	}
}

// listing punctuation used as a mid-priority split boundary
var listingPunct = []rune{',', '、', '，', ';', '；', ':', '：'}

// Chunk splits text into ordered sub-sentences. Short texts pass through as
// a single chunk; splitting prefers strong punctuation, then language
// closing inflections, then listing punctuation, then a forced whitespace
// split. Degenerately short pieces are merged back into a neighbor.
func (c *Chunker) Chunk(text, languageCode string) []Chunk {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) <= c.noChunkLen {
		return []Chunk{{Text: trimmed, Index: 0, IsLast: true}}
	}

	pieces := splitAfter(trimmed, isStrongTerminal)
	pieces = c.refine(pieces, inflectionSplitter(normalizeLanguage(languageCode)))
	pieces = c.refine(pieces, func(s string) []string {
		return splitAfter(s, isListingPunct)
	})
	pieces = c.refine(pieces, c.forceSplit)
	pieces = c.mergeShort(pieces)

	chunks := make([]Chunk, 0, len(pieces))
	for i, p := range pieces {
		chunks = append(chunks, Chunk{
			Text:   p,
			Index:  i,
			IsLast: i == len(pieces)-1,
		})
	}
	return chunks
}

// refine re-splits any piece still over the maximum length
func (c *Chunker) refine(pieces []string, split func(string) []string) []string {
	if split == nil {
		return pieces
	}
	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		if utf8.RuneCountInString(p) <= c.maxLen {
			out = append(out, p)
			continue
		}
		out = append(out, split(p)...)
	}
	return out
}

// mergeShort folds pieces below the minimum length into a neighbor,
// preferring the previous piece so sentence order reads naturally
func (c *Chunker) mergeShort(pieces []string) []string {
	if len(pieces) <= 1 {
		return pieces
	}
	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		if len(out) > 0 && utf8.RuneCountInString(p) < c.minLen {
			out[len(out)-1] = out[len(out)-1] + " " + p
			continue
		}
		out = append(out, p)
	}
	// A short first piece has no previous neighbor; fold it forward.
	if len(out) > 1 && utf8.RuneCountInString(out[0]) < c.minLen {
		out[1] = out[0] + " " + out[1]
		out = out[1:]
	}
	return out
}

// forceSplit cuts at the whitespace nearest to the maximum length; when a
// run has no whitespace at all it cuts at the limit itself
func (c *Chunker) forceSplit(s string) []string {
	var out []string
	runes := []rune(s)
	for len(runes) > c.maxLen {
		cut := -1
		for i := c.maxLen; i > 0; i-- {
			if unicode.IsSpace(runes[i]) {
				cut = i
				break
			}
		}
		if cut <= 0 {
			cut = c.maxLen
		}
		out = append(out, strings.TrimSpace(string(runes[:cut])))
		runes = []rune(strings.TrimSpace(string(runes[cut:])))
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}

// splitAfter splits text immediately after any rune matched by isBoundary,
// keeping the boundary rune attached to the left piece
func splitAfter(s string, isBoundary func(rune) bool) []string {
	var out []string
	var cur strings.Builder
	for _, r := range s {
		cur.WriteRune(r)
		if isBoundary(r) {
			piece := strings.TrimSpace(cur.String())
			if piece != "" {
				out = append(out, piece)
			}
			cur.Reset()
		}
	}
	if piece := strings.TrimSpace(cur.String()); piece != "" {
		out = append(out, piece)
	}
	if len(out) == 0 {
		return []string{strings.TrimSpace(s)}
	}
	return out
}

// inflectionSplitter returns a splitter cutting after sentence-final verb
// endings, or nil for languages without a defined ending list
func inflectionSplitter(lang string) func(string) []string {
	endings, ok := closingInflections[lang]
	if !ok {
		return nil
	}
	return func(s string) []string {
		var out []string
		rest := s
		for {
			cut := -1
			// Find the earliest ending followed by whitespace.
			for _, ending := range endings {
				idx := strings.Index(rest, ending+" ")
				if idx >= 0 {
					end := idx + len(ending)
					if cut == -1 || end < cut {
						cut = end
					}
				}
			}
			if cut == -1 {
				break
			}
			piece := strings.TrimSpace(rest[:cut])
			if piece != "" {
				out = append(out, piece)
			}
			rest = strings.TrimSpace(rest[cut:])
		}
		if rest != "" {
			out = append(out, rest)
		}
		if len(out) == 0 {
			return []string{s}
		}
		return out
	}
}

func isStrongTerminal(r rune) bool {
	for _, t := range strongTerminals {
		if r == t {
			return true
		}
	}
	return false
}

func isListingPunct(r rune) bool {
	for _, p := range listingPunct {
		if r == p {
			return true
		}
	}
	return false
}
