package suggestion

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Sentiment is the overall tone of a conversation.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

var (
	positiveWords = []string{"bom", "ótimo", "excelente", "gostei", "interesse", "sim", "quero"}
	negativeWords = []string{"não", "caro", "difícil", "problema", "ruim", "cancelar"}
)

const (
	maxKeywords   = 5
	minKeywordLen = 6
)

// Analysis is the aggregate sentiment of a transcript.
type Analysis struct {
	Sentiment   Sentiment `json:"sentiment"`
	Score       float64   `json:"score"`
	Summary     string    `json:"summary"`
	Keywords    []string  `json:"keywords"`
	ActionItems []string  `json:"actionItems"`
}

// Analyze scores a transcript by counting whitespace tokens that contain a
// positive or a negative word. It is deterministic and does no I/O.
func Analyze(transcript string) Analysis {
	tokens := strings.Fields(strings.ToLower(transcript))

	var pos, neg int
	keywords := make([]string, 0, maxKeywords)
	seen := make(map[string]struct{})

	for _, tok := range tokens {
		if containsAny(tok, positiveWords) {
			pos++
		}
		if containsAny(tok, negativeWords) {
			neg++
		}
		if len(keywords) < maxKeywords && utf8.RuneCountInString(tok) >= minKeywordLen {
			if _, dup := seen[tok]; !dup {
				seen[tok] = struct{}{}
				keywords = append(keywords, tok)
			}
		}
	}

	score := clamp(float64(pos-neg+5)/10, 0, 1)

	sentiment := SentimentNeutral
	switch {
	case score > 0.6:
		sentiment = SentimentPositive
	case score < 0.4:
		sentiment = SentimentNegative
	}

	actions := []string{"Investigar objeções", "Oferecer alternativas"}
	if sentiment == SentimentPositive {
		actions = []string{"Agendar follow-up", "Enviar proposta"}
	}

	return Analysis{
		Sentiment:   sentiment,
		Score:       score,
		Summary:     fmt.Sprintf("Conversa com sentimento %s. %d sinais positivos, %d negativos.", sentiment, pos, neg),
		Keywords:    keywords,
		ActionItems: actions,
	}
}

func containsAny(token string, words []string) bool {
	for _, w := range words {
		if strings.Contains(token, w) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
