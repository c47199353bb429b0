package language

import "testing"

func TestAnalyze_TerminalPunctuation(t *testing.T) {
	a := NewAnalyzer()

	cases := []struct {
		text string
		lang string
	}{
		{"We should ship this on Friday.", "en"},
		{"Is everyone ready?", "en"},
		{"회의를 시작하겠습니다!", "ko"},
		{"それでは始めましょう。", "ja"},
		{"Trailing spaces still count.   ", "en"},
	}

	for _, tc := range cases {
		res := a.Analyze(tc.text, tc.lang)
		if !res.IsComplete {
			t.Errorf("expected complete for %q, got %+v", tc.text, res)
		}
		if res.Confidence < 0.9 {
			t.Errorf("expected high confidence for %q, got %f", tc.text, res.Confidence)
		}
	}
}

func TestAnalyze_KoreanClosingInflection(t *testing.T) {
	a := NewAnalyzer()

	cases := []string{
		"오늘 회의 자료를 공유했습니다",
		"네 맞아요",
		"그렇게 하면 될 것 같네요",
		"이 부분은 제가 처리할게요",
		"내일까지 끝낼게요",
		"먼저 들어가 볼게요",
	}

	for _, text := range cases {
		res := a.Analyze(text, "ko-KR")
		if !res.IsComplete {
			t.Errorf("expected complete for %q, got %+v", text, res)
		}
		if res.Reason != "closing inflection" {
			t.Errorf("expected inflection match for %q, got reason %q", text, res.Reason)
		}
	}
}

func TestAnalyze_IncompleteUtterance(t *testing.T) {
	a := NewAnalyzer()

	cases := []struct {
		text string
		lang string
	}{
		{"So what I was thinking is", "en"},
		{"그래서 제가 말씀드리고 싶은", "ko"},
		{"and then we", "en"},
	}

	for _, tc := range cases {
		res := a.Analyze(tc.text, tc.lang)
		if res.IsComplete {
			t.Errorf("expected incomplete for %q, got %+v", tc.text, res)
		}
	}
}

func TestAnalyze_InflectionOnlyForConfiguredLanguages(t *testing.T) {
	a := NewAnalyzer()

	// English text that happens to lack punctuation must not match the
	// Korean ending table.
	res := a.Analyze("the demo went well", "en-US")
	if res.IsComplete {
		t.Fatalf("expected incomplete, got %+v", res)
	}
}

func TestAnalyze_EmptyText(t *testing.T) {
	a := NewAnalyzer()

	res := a.Analyze("   ", "en")
	if res.IsComplete {
		t.Fatalf("expected incomplete for blank text, got %+v", res)
	}
}
