package suggestion

import "strings"

type rule struct {
	category   Category
	keywords   []string
	text       string
	confidence float64
}

// rules are checked in order; the first match wins.
var rules = []rule{
	{
		category:   CategoryGreeting,
		keywords:   []string{"olá", "oi", "bom dia"},
		text:       "Olá! Seja bem-vindo! Como posso ajudá-lo hoje? 😊",
		confidence: 0.9,
	},
	{
		category:   CategoryObjection,
		keywords:   []string{"caro", "preço", "desconto"},
		text:       "Entendo sua preocupação com o investimento. Nosso produto oferece ROI comprovado em 3 meses. Posso mostrar casos de sucesso similares ao seu?",
		confidence: 0.85,
	},
	{
		category:   CategoryClosing,
		keywords:   []string{"interesse", "gostei", "quero"},
		text:       "Excelente! Vejo que você tem interesse. Que tal agendarmos uma demonstração personalizada para mostrar como podemos atender suas necessidades específicas?",
		confidence: 0.9,
	},
	{
		category:   CategoryQuestion,
		keywords:   []string{"?", "como", "qual"},
		text:       "Ótima pergunta! Deixa eu explicar de forma clara...",
		confidence: 0.8,
	},
}

var generalRule = rule{
	category:   CategoryGeneral,
	text:       "Entendo. Me conta mais sobre sua situação para eu poder ajudar melhor.",
	confidence: 0.7,
}

func match(message string) rule {
	lower := strings.ToLower(message)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r
			}
		}
	}
	return generalRule
}

// Classify returns the category of a customer message using case-insensitive
// substring matching.
func Classify(message string) Category {
	return match(message).category
}

// Fallback returns the canned reply and confidence for message.
func Fallback(message string) (string, Category, float64) {
	r := match(message)
	return r.text, r.category, r.confidence
}
