package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rbright/agrovoz/internal/capture"
	"github.com/rbright/agrovoz/internal/catalog"
	"github.com/rbright/agrovoz/internal/fsm"
	"github.com/rbright/agrovoz/internal/intent"
	"github.com/rbright/agrovoz/internal/ipc"
	"github.com/rbright/agrovoz/internal/location"
	"github.com/rbright/agrovoz/internal/recognizer"
	"github.com/rbright/agrovoz/internal/store"
	"github.com/rbright/agrovoz/internal/wizard"
	"github.com/stretchr/testify/require"
)

func TestHandleStatusAndUnknownCommand(t *testing.T) {
	h := newHarness(t, nil)

	status := h.do(t, ipc.CommandStatus)
	require.True(t, status.OK)
	require.Equal(t, string(fsm.StateIdle), status.State)
	require.Equal(t, string(wizard.StepIdle), status.WizardStep)

	unknown := h.do(t, "definitely-unknown")
	require.False(t, unknown.OK)
	require.Contains(t, unknown.Error, "unknown command")
}

func TestStopAndCancelFromIdle(t *testing.T) {
	h := newHarness(t, nil)

	stop := h.do(t, ipc.CommandStop)
	require.False(t, stop.OK)
	require.Contains(t, stop.Error, "cannot stop from state idle")

	cancel := h.do(t, ipc.CommandCancel)
	require.True(t, cancel.OK)
	require.Equal(t, string(fsm.StateIdle), cancel.State)
}

func TestDoubleStartWhilePendingRunsOneSession(t *testing.T) {
	gate := make(chan struct{})
	h := newHarness(t, func(d *Deps, _ *Config) {
		d.Engine.(*fakeEngine).gate = gate
	})

	first := h.do(t, ipc.CommandListen)
	require.True(t, first.OK)
	require.Equal(t, string(fsm.StateStarting), first.State)

	second := h.do(t, ipc.CommandListen)
	require.False(t, second.OK)
	require.Contains(t, second.Error, "cannot start from state starting")

	dictate := h.do(t, ipc.CommandDictate)
	require.False(t, dictate.OK)

	close(gate)
	h.waitListening(t, 1, PurposeNone)
	require.Equal(t, int32(1), h.engine.starts.Load())
	require.Equal(t, int32(1), h.indicator.listeningCues.Load())
	require.Equal(t, intent.DefaultGrammar(), h.engine.lastOptions().Grammar)
}

func TestCommandFiresOnceAndResumesCommands(t *testing.T) {
	h := newHarness(t, func(_ *Deps, c *Config) {
		c.ResumeDelay = 10 * time.Millisecond
	})

	require.True(t, h.do(t, ipc.CommandListen).OK)
	h.waitListening(t, 1, PurposeNone)

	h.engine.emit(recognizer.KindPartial, `{"partial": "abrir o mapa"}`)
	h.engine.final("abrir o mapa")

	h.waitListening(t, 2, PurposeNone)
	require.Len(t, h.intents.named(intent.IntentOpenMap), 1)
	require.True(t, h.spoken.said("Abrindo mapa agora"))
	require.Equal(t, intent.IntentOpenMap, h.ctrl.Status().LastIntent)
	require.GreaterOrEqual(t, h.engine.stops.Load(), int32(1))
}

func TestCommandWithoutFollowUpEndsIdle(t *testing.T) {
	h := newHarness(t, nil)

	require.True(t, h.do(t, ipc.CommandListen).OK)
	h.waitListening(t, 1, PurposeNone)
	h.engine.final("mostrar perfil")

	require.Eventually(t, func() bool { return h.spoken.said("Mostrando perfil") }, 2*time.Second, 5*time.Millisecond)
	h.waitState(t, fsm.StateIdle)
	require.Equal(t, int32(1), h.engine.starts.Load())
	require.False(t, h.engine.isRunning())
}

func TestCommandTimeoutRepromptsAndRetries(t *testing.T) {
	h := newHarness(t, nil)

	require.True(t, h.do(t, ipc.CommandListen).OK)
	h.waitListening(t, 1, PurposeNone)

	h.engine.emit(recognizer.KindPartial, `{"partial": "qualquer coisa"}`)
	h.engine.emit(recognizer.KindTimeout, "")

	h.waitListening(t, 2, PurposeNone)
	require.True(t, h.spoken.said("Desculpe, não entendi. Pode repetir?"))
	require.Empty(t, h.ctrl.Status().Partial)
	require.Empty(t, h.intents.named(intent.IntentOpenMap))
}

func TestCommandTimeoutReleasesEngineBeforeRetry(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.busyWhileRunning = true

	require.True(t, h.do(t, ipc.CommandListen).OK)
	h.waitListening(t, 1, PurposeNone)

	h.engine.emit(recognizer.KindTimeout, "")

	h.waitListening(t, 2, PurposeNone)
	require.GreaterOrEqual(t, h.engine.stops.Load(), int32(1))
	require.True(t, h.engine.isRunning())
	require.Equal(t, fsm.StateListening, h.ctrl.State())
}

func TestVoiceCommandStartsDictation(t *testing.T) {
	h := newHarness(t, nil)

	require.True(t, h.do(t, ipc.CommandListen).OK)
	h.waitListening(t, 1, PurposeNone)
	h.engine.final("gravar praga")

	h.waitListening(t, 2, PurposeReport)
	require.True(t, h.spoken.said("Iniciando a gravação"))
	require.Nil(t, h.engine.lastOptions().Grammar)
	require.Equal(t, int32(1), h.indicator.dictationCues.Load())
}

func TestHotwordStopsDictationAndSavesNote(t *testing.T) {
	device := &fileDevice{dir: t.TempDir()}
	h := newHarness(t, func(d *Deps, _ *Config) {
		d.Capture = capture.NewBridge(device, nil)
	})

	require.True(t, h.do(t, ipc.CommandDictate).OK)
	h.waitListening(t, 1, PurposeNote)

	h.engine.final("lagarta na folha")
	h.engine.final("finalizar")

	require.Eventually(t, func() bool { return h.spoken.said("Audio gravado com sucesso") }, 2*time.Second, 5*time.Millisecond)
	h.waitState(t, fsm.StateIdle)

	recs, err := h.store.ListRecordings(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "lagarta na folha", recs[0].Transcription)
	require.Equal(t, location.Unavailable, recs[0].Location)
	require.True(t, strings.HasPrefix(recs[0].Name, "recorder-"))
	require.Equal(t, filepath.Join(h.dataDir, "recordings", recs[0].Name), recs[0].File)
	require.FileExists(t, recs[0].File)
	require.False(t, device.Status().IsRecording)
	require.Equal(t, int32(1), h.indicator.completeCues.Load())
}

func TestReportSplitsSpokenFields(t *testing.T) {
	h := newHarness(t, func(d *Deps, _ *Config) {
		d.Location = location.Fixed{Position: location.Position{Latitude: -23.5, Longitude: -46.25}}
	})

	require.True(t, h.do(t, ipc.CommandReport).OK)
	h.waitListening(t, 1, PurposeReport)
	h.engine.final("lagarta na soja ponto fazenda sul ponto lagarta do cartucho")
	h.engine.emit(recognizer.KindTimeout, "")

	require.Eventually(t, func() bool {
		reps, err := h.store.ListPestReports(context.Background())
		return err == nil && len(reps) == 1
	}, 2*time.Second, 5*time.Millisecond)

	reps, err := h.store.ListPestReports(context.Background())
	require.NoError(t, err)
	require.Equal(t, "lagarta na soja", reps[0].Description)
	require.Equal(t, "fazenda sul", reps[0].Property)
	require.Equal(t, "lagarta do cartucho", reps[0].Pest)
	require.Equal(t, "-23.5,-46.25", reps[0].Location)
	require.Empty(t, reps[0].File)
}

func TestReportDefaultsMissingFields(t *testing.T) {
	h := newHarness(t, nil)

	require.True(t, h.do(t, ipc.CommandReport).OK)
	h.waitListening(t, 1, PurposeReport)
	h.engine.final("mancha na folha finalizar")

	require.Eventually(t, func() bool {
		reps, err := h.store.ListPestReports(context.Background())
		return err == nil && len(reps) == 1
	}, 2*time.Second, 5*time.Millisecond)

	reps, err := h.store.ListPestReports(context.Background())
	require.NoError(t, err)
	require.Equal(t, "mancha na folha", reps[0].Description)
	require.Equal(t, "Indefinido", reps[0].Property)
	require.Equal(t, "Indefinido", reps[0].Pest)
}

func TestStopDuringPersistenceAbortsToIdle(t *testing.T) {
	gated := &gatedStore{
		MemStore: store.NewMemStore(),
		release:  make(chan struct{}),
		entered:  make(chan struct{}),
	}
	h := newHarness(t, func(d *Deps, _ *Config) {
		d.Store = gated
	})

	require.True(t, h.do(t, ipc.CommandDictate).OK)
	h.waitListening(t, 1, PurposeNote)
	h.engine.emit(recognizer.KindPartial, `{"partial": "pulgão"}`)
	h.engine.final("pulgão no talhão")
	require.Eventually(t, func() bool {
		return h.ctrl.Status().Transcript == "pulgão no talhão"
	}, 2*time.Second, 5*time.Millisecond)

	stop := h.do(t, ipc.CommandStop)
	require.True(t, stop.OK)
	require.Equal(t, string(fsm.StateStopping), stop.State)
	require.Empty(t, stop.Transcript)
	require.Empty(t, stop.Partial)

	<-gated.entered
	again := h.do(t, ipc.CommandStop)
	require.True(t, again.OK)
	require.Equal(t, "aborted", again.Message)
	require.Equal(t, string(fsm.StateIdle), again.State)

	close(gated.release)
	require.Never(t, func() bool {
		return h.ctrl.State() != fsm.StateIdle || h.spoken.said("Audio gravado com sucesso")
	}, 100*time.Millisecond, 5*time.Millisecond)

	// The next session is not blocked by the aborted one.
	require.True(t, h.do(t, ipc.CommandListen).OK)
	h.waitListening(t, 2, PurposeNone)
}

func TestCancelDiscardsCapture(t *testing.T) {
	device := &fileDevice{dir: t.TempDir()}
	h := newHarness(t, func(d *Deps, _ *Config) {
		d.Capture = capture.NewBridge(device, nil)
	})

	require.True(t, h.do(t, ipc.CommandDictate).OK)
	h.waitListening(t, 1, PurposeNote)
	h.engine.final("descartar isto")
	captured := strings.TrimPrefix(device.URI(), "file://")

	require.True(t, h.do(t, ipc.CommandCancel).OK)
	h.waitState(t, fsm.StateIdle)

	recs, err := h.store.ListRecordings(context.Background())
	require.NoError(t, err)
	require.Empty(t, recs)
	require.Eventually(t, func() bool {
		_, err := os.Stat(captured)
		return os.IsNotExist(err)
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, int32(1), h.indicator.cancelCues.Load())
}

func TestEngineErrorTearsDownCycle(t *testing.T) {
	h := newHarness(t, nil)

	require.True(t, h.do(t, ipc.CommandDictate).OK)
	h.waitListening(t, 1, PurposeNote)
	h.engine.events <- recognizer.Event{Session: 1, Kind: recognizer.KindError}

	h.waitState(t, fsm.StateIdle)
	recs, err := h.store.ListRecordings(context.Background())
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestEventsFromOtherSessionsAreIgnored(t *testing.T) {
	h := newHarness(t, nil)

	require.True(t, h.do(t, ipc.CommandDictate).OK)
	h.waitListening(t, 1, PurposeNote)
	h.engine.events <- recognizer.Event{Session: 99, Kind: recognizer.KindFinal, Payload: `{"text": "finalizar"}`}
	h.engine.final("ainda ouvindo")

	require.Eventually(t, func() bool {
		return h.ctrl.Status().Transcript == "ainda ouvindo"
	}, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, fsm.StateListening, h.ctrl.State())
}

func TestPermissionDeniedAlertsAndReturnsIdle(t *testing.T) {
	h := newHarness(t, func(d *Deps, _ *Config) {
		d.Engine.(*fakeEngine).startErr = recognizer.ErrPermissionDenied
	})

	require.True(t, h.do(t, ipc.CommandListen).OK)
	h.waitState(t, fsm.StateIdle)
	require.Eventually(t, func() bool {
		return len(h.indicator.alertList()) == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, "Voz: Permissão de microfone negada", h.indicator.alertList()[0])
}

func TestWizardEndToEnd(t *testing.T) {
	h := newHarness(t, nil)

	resp := h.do(t, ipc.CommandDay)
	require.True(t, resp.OK)
	require.Equal(t, string(wizard.StepObjectives), resp.WizardStep)

	h.waitListening(t, 1, PurposeWizard)
	h.engine.final("colheita")
	h.waitListening(t, 2, PurposeWizard)
	require.Equal(t, wizard.StepProperty, h.ctrl.Status().WizardStep)

	h.engine.final("fazenda sul")
	h.waitListening(t, 3, PurposeWizard)
	h.engine.final("talhão 05")
	h.waitListening(t, 4, PurposeWizard)
	require.Equal(t, wizard.StepConfirm, h.ctrl.Status().WizardStep)

	h.engine.final("sim")
	require.Eventually(t, func() bool {
		return len(h.intents.named(intent.IntentDayStarted)) == 1
	}, 2*time.Second, 5*time.Millisecond)
	h.waitState(t, fsm.StateIdle)

	started := h.intents.named(intent.IntentDayStarted)[0]
	require.Equal(t, "Colheita", started.Values["objective"])
	require.Equal(t, "Fazenda Sul", started.Values["property"])
	require.Equal(t, "05", started.Values["field"])
	require.Equal(t, wizard.StepDayStarted, h.ctrl.Status().WizardStep)
	require.False(t, h.engine.isRunning())
	require.Len(t, h.intents.named(intent.IntentStartDay), 1)

	require.Eventually(t, func() bool {
		days, err := h.store.ListWorkdays(context.Background())
		return err == nil && len(days) == 1 && days[0].Field == "05"
	}, time.Second, 5*time.Millisecond)
}

func TestWizardRetriesOnUnknownAnswer(t *testing.T) {
	h := newHarness(t, nil)

	require.True(t, h.do(t, ipc.CommandDay).OK)
	h.waitListening(t, 1, PurposeWizard)
	h.engine.final("xyz")

	h.waitListening(t, 2, PurposeWizard)
	require.Equal(t, wizard.StepObjectives, h.ctrl.Status().WizardStep)
}

func TestWizardRetryLimitPublishesManualEntry(t *testing.T) {
	h := newHarness(t, func(d *Deps, _ *Config) {
		d.Wizard = wizard.New(catalog.Default(), wizard.Options{MaxRetries: 1})
	})

	require.True(t, h.do(t, ipc.CommandDay).OK)
	h.waitListening(t, 1, PurposeWizard)
	h.engine.final("xyz")
	h.waitListening(t, 2, PurposeWizard)
	h.engine.final("abc")

	require.Eventually(t, func() bool {
		return len(h.intents.named(intent.IntentManualEntry)) == 1
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return h.spoken.said("Não consegui entender a resposta. Preencha o início do dia manualmente.")
	}, time.Second, 5*time.Millisecond)
	h.waitState(t, fsm.StateIdle)
	require.Equal(t, wizard.StepIdle, h.ctrl.Status().WizardStep)
}

func TestCancelDayStopsWizardDictation(t *testing.T) {
	h := newHarness(t, nil)

	require.True(t, h.do(t, ipc.CommandDay).OK)
	h.waitListening(t, 1, PurposeWizard)

	resp := h.do(t, ipc.CommandCancelDay)
	require.True(t, resp.OK)
	require.Equal(t, string(wizard.StepIdle), resp.WizardStep)
	h.waitState(t, fsm.StateIdle)
	require.Equal(t, int32(1), h.engine.starts.Load())

	again := h.do(t, ipc.CommandCancelDay)
	require.False(t, again.OK)
}

func TestRecordsListsStoredRecordsOldestFirst(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	base := time.Date(2025, 9, 15, 8, 0, 0, 0, time.UTC)

	require.NoError(t, h.store.InsertPestReport(ctx, &store.PestReport{
		Name: "recorder-2.wav", Description: "lagarta", Property: "fazenda sul", Pest: "lagarta-do-cartucho", Datetime: base.Add(time.Hour),
	}))
	require.NoError(t, h.store.InsertRecording(ctx, &store.Recording{
		Name: "recorder-1.wav", Transcription: "chuva forte", Datetime: base,
	}))
	require.NoError(t, h.store.InsertWorkday(ctx, &store.Workday{
		Objective: "Colheita", Property: "Fazenda Sul", Field: "05", StartedAt: base.Add(2 * time.Hour),
	}))

	resp := h.do(t, ipc.CommandRecords)
	require.True(t, resp.OK, resp.Error)
	require.Equal(t, "3 records", resp.Message)
	require.Len(t, resp.Records, 3)
	require.Equal(t, ipc.RecordNote, resp.Records[0].Kind)
	require.Equal(t, "chuva forte", resp.Records[0].Text)
	require.Equal(t, ipc.RecordReport, resp.Records[1].Kind)
	require.Equal(t, "lagarta-do-cartucho", resp.Records[1].Detail)
	require.Equal(t, ipc.RecordWorkday, resp.Records[2].Kind)
	require.Equal(t, "05", resp.Records[2].Detail)
}

func TestDeleteRemovesRecordAndAudio(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	audioPath := filepath.Join(h.dataDir, "recorder-1.wav")
	require.NoError(t, os.WriteFile(audioPath, []byte("RIFF"), 0o600))
	rep := &store.PestReport{Name: "recorder-1.wav", Description: "ferrugem", File: "file://" + audioPath}
	require.NoError(t, h.store.InsertPestReport(ctx, rep))

	resp := h.ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandDelete, ID: rep.ID})
	require.True(t, resp.OK, resp.Error)
	require.NoFileExists(t, audioPath)

	reports, err := h.store.ListPestReports(ctx)
	require.NoError(t, err)
	require.Empty(t, reports)

	resp = h.ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandDelete, ID: rep.ID})
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "no note or report")

	resp = h.do(t, ipc.CommandDelete)
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "requires a record id")
}
