package suggestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		sentiment Sentiment
		score     float64
	}{
		{"no matches", "a reunião foi agendada", SentimentNeutral, 0.5},
		{"empty", "", SentimentNeutral, 0.5},
		{"two positive", "gostei muito, ótimo", SentimentPositive, 0.7},
		{"one positive stays neutral", "sim", SentimentNeutral, 0.6},
		{"two negative", "muito caro, problema sério", SentimentNegative, 0.3},
		{"clamped high", "sim sim sim sim sim sim sim", SentimentPositive, 1},
		{"clamped low", "não não não não não não não", SentimentNegative, 0},
		{"substring containment", "bomba", SentimentNeutral, 0.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Analyze(tt.text)
			assert.Equal(t, tt.sentiment, a.Sentiment)
			assert.InDelta(t, tt.score, a.Score, 1e-9)
		})
	}
}

func TestAnalyzeIdempotent(t *testing.T) {
	transcript := "customer: achei caro mas gostei da proposta\nagent: posso oferecer desconto"
	first := Analyze(transcript)
	second := Analyze(transcript)
	assert.Equal(t, first, second)
}

func TestAnalyzeDetails(t *testing.T) {
	a := Analyze("Excelente proposta, quero agendar demonstração proposta, amanhã")

	assert.Equal(t, SentimentPositive, a.Sentiment)
	assert.Equal(t, "Conversa com sentimento positive. 2 sinais positivos, 0 negativos.", a.Summary)
	assert.Equal(t, []string{"excelente", "proposta,", "agendar", "demonstração", "amanhã"}, a.Keywords)
	assert.Equal(t, []string{"Agendar follow-up", "Enviar proposta"}, a.ActionItems)

	neutral := Analyze("")
	assert.Equal(t, []string{"Investigar objeções", "Oferecer alternativas"}, neutral.ActionItems)
	assert.Empty(t, neutral.Keywords)
}

func TestAnalyzeKeywordLimit(t *testing.T) {
	a := Analyze("alpha1 bravo2 charlie delta4 echo55 foxtrot golf77 hotel88")
	assert.Equal(t, []string{"alpha1", "bravo2", "charlie", "delta4", "echo55"}, a.Keywords)
}
