package engine

import "strings"

// Objection pairs a trigger phrase with its fixed reply.
type Objection struct {
	Trigger string
	Reply   string
}

// ObjectionTable is an ordered list of known objections. A slice, not a map:
// when several triggers are contained in one message, the first declared
// entry wins, and map iteration would not preserve that.
type ObjectionTable struct {
	entries []Objection
}

func NewObjectionTable(entries []Objection) *ObjectionTable {
	return &ObjectionTable{entries: entries}
}

// Match lower-cases and trims the text, then checks substring containment
// against each trigger in declaration order. Returns the reply of the first
// matching trigger.
func (t *ObjectionTable) Match(text string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	for _, e := range t.entries {
		if strings.Contains(normalized, e.Trigger) {
			return e.Reply, true
		}
	}
	return "", false
}

// DefaultObjectionTable holds the standard sales objections.
func DefaultObjectionTable() *ObjectionTable {
	return NewObjectionTable([]Objection{
		{
			Trigger: "não tenho orçamento",
			Reply:   "Entendo totalmente. Podemos criar um plano enxuto e escalável, começando com apenas os itens essenciais — assim você rende mais sem precisar de um investimento alto de início.",
		},
		{
			Trigger: "quero pensar",
			Reply:   "Claro! Que tal marcarmos uma mini-call de 10 min para tirar todas as suas dúvidas antes de você tomar a decisão? Sem compromisso.",
		},
		{
			Trigger: "não tenho tempo",
			Reply:   "Perfeito! Nosso processo é pensado para empresários ocupados. Cuidamos de tudo pra você — você só precisa aprovar as estratégias.",
		},
		{
			Trigger: "já tenho agência",
			Reply:   "Que bom! Como está sendo a experiência? Às vezes uma segunda opinião ou complemento pode fazer toda diferença nos resultados.",
		},
	})
}
