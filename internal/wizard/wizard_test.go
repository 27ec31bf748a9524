package wizard

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/agrovoz/internal/catalog"
	"github.com/rbright/agrovoz/internal/speech"
)

func TestWizardHappyPath(t *testing.T) {
	w := New(catalog.Default(), Options{})

	reply := w.Begin()
	require.True(t, reply.Listen)
	require.Contains(t, reply.Prompt, "objetivo")
	require.Equal(t, StepObjectives, w.State().Step)

	reply = w.Answer("colheita")
	require.True(t, reply.Listen)
	require.Contains(t, reply.Prompt, "Objetivo: Colheita")
	require.Equal(t, StepProperty, w.State().Step)

	reply = w.Answer("Fazenda Sul")
	require.True(t, reply.Listen)
	require.Equal(t, StepField, w.State().Step)

	reply = w.Answer("05")
	require.True(t, reply.Listen)
	require.Contains(t, reply.Prompt, "talhão 05")
	require.Equal(t, StepConfirm, w.State().Step)

	reply = w.Answer("sim")
	require.True(t, reply.Done)
	require.False(t, reply.Listen)

	state := w.State()
	require.Equal(t, StepDayStarted, state.Step)
	require.Equal(t, "Colheita", state.Objective)
	require.Equal(t, "Fazenda Sul", state.Property)
	require.Equal(t, "05", state.Field)
	require.False(t, w.Active())
}

func TestWizardSpeaksConfiguredPrompts(t *testing.T) {
	w := New(catalog.Default(), Options{Prompts: speech.MessagesFor(speech.LocaleEnglish).Wizard})

	reply := w.Begin()
	require.Contains(t, reply.Prompt, "What is today's objective? For example: ")

	reply = w.Answer("xyz")
	require.Contains(t, reply.Prompt, "I did not recognize the objective")

	w.Answer("colheita")
	w.Answer("Fazenda Sul")
	reply = w.Answer("05")
	require.Equal(t, "Field: 05. Start the day with Colheita, Fazenda Sul, field 05? Say sim to confirm.", reply.Prompt)

	require.Equal(t, "Day started. Have a good shift!", w.Answer("sim").Prompt)
	require.Equal(t, "Start of day cancelled.", w.Cancel().Prompt)
}

func TestWizardRepromptsOnSameStep(t *testing.T) {
	w := New(catalog.Default(), Options{})
	w.Begin()

	reply := w.Answer("xyz")
	require.True(t, reply.Listen)
	require.Contains(t, reply.Prompt, "Não reconheci o objetivo")
	require.Equal(t, StepObjectives, w.State().Step)
	require.Equal(t, 1, w.State().Retries)

	reply = w.Answer("")
	require.True(t, reply.Listen)
	require.Equal(t, 2, w.State().Retries)

	w.Answer("plantio")
	require.Equal(t, StepProperty, w.State().Step)
	require.Equal(t, 0, w.State().Retries)
}

func TestWizardUnboundedRetriesByDefault(t *testing.T) {
	w := New(catalog.Default(), Options{})
	w.Begin()
	for i := 0; i < 50; i++ {
		reply := w.Answer("nada")
		require.False(t, reply.Aborted)
	}
	require.Equal(t, StepObjectives, w.State().Step)
}

func TestWizardRetryLimitAborts(t *testing.T) {
	w := New(catalog.Default(), Options{MaxRetries: 2})
	w.Begin()
	w.Answer("colheita")

	require.True(t, w.Answer("nada").Listen)
	require.True(t, w.Answer("nada").Listen)
	reply := w.Answer("nada")
	require.True(t, reply.Aborted)
	require.False(t, reply.Listen)
	require.Contains(t, reply.Prompt, "manualmente")
	require.Equal(t, State{Step: StepIdle}, w.State())
}

func TestWizardConfirmRequiresAffirmative(t *testing.T) {
	w := New(catalog.Default(), Options{})
	w.Begin()
	w.Answer("colheita")
	w.Answer("norte")
	w.Answer("talhão 03")
	require.Equal(t, "03", w.State().Field)

	reply := w.Answer("talvez")
	require.True(t, reply.Listen)
	require.Equal(t, StepConfirm, w.State().Step)

	reply = w.Answer("pode iniciar")
	require.True(t, reply.Done)
}

func TestWizardConfirmBlocksWhenIncomplete(t *testing.T) {
	w := New(catalog.Default(), Options{})
	w.state = State{Step: StepConfirm, Objective: "Colheita", Property: "Fazenda Sul"}

	reply := w.Answer("sim")
	require.True(t, reply.Blocked)
	require.False(t, reply.Listen)
	require.Equal(t, StepConfirm, w.State().Step)
}

func TestWizardCancelClearsFields(t *testing.T) {
	w := New(catalog.Default(), Options{})
	w.Begin()
	w.Answer("colheita")

	reply := w.Answer("cancelar")
	require.True(t, reply.Cancelled)
	require.Equal(t, State{Step: StepIdle}, w.State())

	w.Begin()
	w.Answer("irrigação")
	reply = w.Cancel()
	require.True(t, reply.Cancelled)
	require.Equal(t, State{Step: StepIdle}, w.State())
}

func TestWizardIgnoresAnswersWhenIdle(t *testing.T) {
	w := New(catalog.Default(), Options{})
	require.Equal(t, Reply{}, w.Answer("colheita"))
	require.Equal(t, StepIdle, w.State().Step)
}
