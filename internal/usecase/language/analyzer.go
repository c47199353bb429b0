package language

import (
	"strings"
	"unicode"
)

// Analysis is the result of judging whether an utterance reads as a complete
// sentence. It feeds the continuity decision for context-aware translation;
// it never gates persistence or translation on its own.
type Analysis struct {
	IsComplete bool    `json:"is_complete"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Analyzer applies language-aware sentence completeness heuristics
type Analyzer struct{}

// NewAnalyzer creates a new Analyzer instance
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// strongTerminals end a sentence in any supported language
var strongTerminals = []rune{'.', '!', '?', '。', '！', '？', '…'}

// closingInflections lists sentence-final verb endings per language. A match
// at the end of the utterance counts as a complete sentence even without
// terminal punctuation, because speech recognition frequently drops it.
var closingInflections = map[string][]string{
	"ko": {
		"습니다", "습니까", "입니다", "입니까", "합니다", "합니까",
		"됩니다", "었습니다", "겠습니다",
		"어요", "아요", "에요", "예요", "해요", "네요", "데요",
		"거든요", "군요", "나요", "까요", "세요", "지요", "죠",
		"잖아요", "게요", "려고요", "는데요",
	},
	"ja": {
		"です", "ます", "ました", "ません", "でした", "ですか", "ますか",
		"だ", "だった", "ですね", "ますね",
	},
}

// Analyze decides whether text reads as a grammatically complete utterance
// in the given source language
func (a *Analyzer) Analyze(text, languageCode string) Analysis {
	trimmed := strings.TrimRightFunc(text, unicode.IsSpace)
	if trimmed == "" {
		return Analysis{IsComplete: false, Confidence: 1.0, Reason: "empty"}
	}

	runes := []rune(trimmed)
	last := runes[len(runes)-1]
	for _, t := range strongTerminals {
		if last == t {
			return Analysis{IsComplete: true, Confidence: 0.9, Reason: "terminal punctuation"}
		}
	}

	// Strip trailing weak punctuation before matching inflections, so
	// "...했어요," still matches the ending.
	core := strings.TrimRightFunc(trimmed, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})

	lang := normalizeLanguage(languageCode)
	if endings, ok := closingInflections[lang]; ok {
		for _, ending := range endings {
			if strings.HasSuffix(core, ending) {
				return Analysis{IsComplete: true, Confidence: 0.7, Reason: "closing inflection"}
			}
		}
	}

	return Analysis{IsComplete: false, Confidence: 0.6, Reason: "no sentence boundary"}
}

// normalizeLanguage reduces a BCP 47 tag like "ko-KR" to its base language
func normalizeLanguage(languageCode string) string {
	lang := strings.ToLower(strings.TrimSpace(languageCode))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}
