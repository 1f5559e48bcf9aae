package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultFlowTableChain(t *testing.T) {
	table := DefaultFlowTable()

	want := []string{StepWelcome, StepDiagnosis, StepValueOffer, StepSuccessCase, StepScheduleCall}
	step := table.Entry()
	for i, name := range want {
		require.Equal(t, name, step.Name)
		require.Equal(t, i+1, step.Ordinal)
		if step.Next == StepCompleted {
			require.Equal(t, len(want)-1, i, "only the last step may lead to the terminal marker")
			break
		}
		next, ok := table.Lookup(step.Next)
		require.True(t, ok, "edge from %s must point at a declared step", step.Name)
		step = next
	}

	_, ok := table.Lookup(StepCompleted)
	require.False(t, ok, "the terminal marker has no table entry")
}

func TestRenderEntryStepTakesName(t *testing.T) {
	table := DefaultFlowTable()

	msg := table.Render(table.Entry(), "João")
	require.True(t, strings.HasPrefix(msg, "Olá, João!"))
}

func TestRenderPlainStepIgnoresArgument(t *testing.T) {
	table := DefaultFlowTable()
	step, ok := table.Lookup(StepDiagnosis)
	require.True(t, ok)

	require.Equal(t, table.Render(step, "whatever"), table.Render(step, ""))
}

func TestRenderContextStepFallback(t *testing.T) {
	table := NewFlowTable([]FlowStep{
		{Name: "ASK", Ordinal: 1, Template: "qual seu desafio?", Next: "ECHO"},
		{Name: "ECHO", Ordinal: 2, Template: "sobre %s, temos um plano.", ContextStep: "ASK", Next: StepCompleted},
	})
	step, ok := table.Lookup("ECHO")
	require.True(t, ok)

	require.Equal(t, "sobre vendas, temos um plano.", table.Render(step, "vendas"))
	// Missing context degrades to the placeholder, never fails.
	require.Equal(t, "sobre isso, temos um plano.", table.Render(step, ""))
}
