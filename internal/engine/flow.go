package engine

import (
	"fmt"
	"strings"
)

// StepCompleted is the terminal marker. It has no table entry and no message;
// a conversation that reaches it absorbs further inbound messages silently.
const StepCompleted = "COMPLETED"

// Flow step names, in script order.
const (
	StepWelcome      = "WELCOME"
	StepDiagnosis    = "DIAGNOSIS"
	StepValueOffer   = "VALUE_OFFER"
	StepSuccessCase  = "SUCCESS_CASE"
	StepScheduleCall = "SCHEDULE_CALL"
)

// contextFallback substitutes for a missing prior response when a template
// expects one.
const contextFallback = "isso"

// FlowStep is one entry of the scripted sequence. Template receives exactly
// one argument: the contact's display name for the entry step, or the
// recorded response of ContextStep for steps that personalize on it. Steps
// that need neither ignore the argument.
type FlowStep struct {
	Name     string
	Ordinal  int
	Template string
	// WithName marks the entry step whose template takes the display name.
	WithName bool
	// ContextStep names the earlier step whose recorded response fills the
	// template. Empty for steps without personalization.
	ContextStep string
	// Next is the following step name, or StepCompleted.
	Next string
}

// FlowTable is the ordered, read-only script. No locking needed after init.
type FlowTable struct {
	steps []FlowStep
	index map[string]int
}

func NewFlowTable(steps []FlowStep) *FlowTable {
	t := &FlowTable{
		steps: steps,
		index: make(map[string]int, len(steps)),
	}
	for i, s := range steps {
		t.index[s.Name] = i
	}
	return t
}

// Entry returns the first step of the script.
func (t *FlowTable) Entry() FlowStep {
	return t.steps[0]
}

// Lookup returns the step by name. The terminal marker is not a step.
func (t *FlowTable) Lookup(name string) (FlowStep, bool) {
	i, ok := t.index[name]
	if !ok {
		return FlowStep{}, false
	}
	return t.steps[i], true
}

// Render fills the step template. arg is the display name for the entry step
// or the prior-response text for context steps; other steps ignore it.
func (t *FlowTable) Render(step FlowStep, arg string) string {
	if step.WithName || step.ContextStep != "" {
		if arg == "" {
			arg = contextFallback
		}
		if strings.Contains(step.Template, "%s") {
			return fmt.Sprintf(step.Template, arg)
		}
	}
	return step.Template
}

// DefaultFlowTable is the sales-qualification script.
func DefaultFlowTable() *FlowTable {
	return NewFlowTable([]FlowStep{
		{
			Name:     StepWelcome,
			Ordinal:  1,
			WithName: true,
			Template: "Olá, %s! Que bom que você entrou em contato com a i8Agência Digital 🎉\nSou o Lucas, consultor de marketing — em que posso te ajudar hoje?",
			Next:     StepDiagnosis,
		},
		{
			Name:     StepDiagnosis,
			Ordinal:  2,
			Template: "Para eu te orientar melhor, conta pra mim:\n\n1️⃣ Qual o seu maior desafio hoje? (site lento, pouca visibilidade, pouco engajamento...)\n2️⃣ Você já tem alguma ação de marketing rodando? Se sim, qual?",
			Next:     StepValueOffer,
		},
		{
			Name:     StepValueOffer,
			Ordinal:  3,
			Template: "Legal, obrigado pelas informações!\n\nPelo que você me falou, sugiro começarmos com uma análise gratuita de SEO e performance do seu site. Em até 24h te envio um relatório com os pontos de melhoria — tudo sem compromisso.",
			Next:     StepSuccessCase,
		},
		{
			Name:     StepSuccessCase,
			Ordinal:  4,
			Template: "Pra você ver um exemplo real: atendemos a Empresa X no segmento de e-commerce e, em 2 meses, dobramos o tráfico orgânico e aumentamos em 30% a geração de leads.\n\nGostaria de saber mais sobre como conseguimos isso?",
			Next:     StepScheduleCall,
		},
		{
			Name:     StepScheduleCall,
			Ordinal:  5,
			Template: "Se fizer sentido pra você, podemos agendar uma call de 15 min na semana que vem para conversarmos com calma sobre estratégia e valores.\n\nQual dia/horário funciona melhor pra você?",
			Next:     StepCompleted,
		},
	})
}
