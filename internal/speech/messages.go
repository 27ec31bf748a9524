package speech

import (
	"os"
	"strings"
)

// Locale selects the message catalog.
type Locale string

const (
	LocalePortuguese Locale = "pt-BR"
	LocaleEnglish    Locale = "en"
)

// Messages are the controller's fixed spoken and alert texts.
type Messages struct {
	NotUnderstood    string
	Listening        string
	Saved            string
	SaveFailed       string
	ManualEntry      string
	PermissionTitle  string
	PermissionDenied string
	DayTitle         string
	Wizard           WizardPrompts
}

// WizardPrompts are the start-of-day dialogue texts. Fields ending in a %s
// verb take the spoken option examples or the accepted value.
type WizardPrompts struct {
	AskObjective      string
	AskProperty       string
	AskField          string
	ObjectiveAccepted string
	PropertyAccepted  string
	FieldAccepted     string
	UnknownObjective  string
	UnknownProperty   string
	UnknownField      string
	// Confirm takes objective, property and field.
	Confirm      string
	ConfirmRetry string
	Incomplete   string
	Started      string
	Cancelled    string
	GiveUp       string
}

// ResolveLocale maps a config value or LANG-style tag to a catalog. Unknown
// tags fall back to Portuguese.
func ResolveLocale(raw string) Locale {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		raw = strings.ToLower(os.Getenv("LANG"))
	}
	if strings.HasPrefix(raw, "en") {
		return LocaleEnglish
	}
	return LocalePortuguese
}

// MessagesFor returns the catalog for tag.
func MessagesFor(tag Locale) Messages {
	switch tag {
	case LocaleEnglish:
		return Messages{
			NotUnderstood:    "Sorry, I did not understand. Can you repeat?",
			Listening:        "I am listening",
			Saved:            "Audio saved",
			SaveFailed:       "Could not save the audio",
			ManualEntry:      "I could not understand the answer. Please fill in the start of day manually.",
			PermissionTitle:  "Voice",
			PermissionDenied: "Microphone permission denied",
			DayTitle:         "Start of day",
			Wizard: WizardPrompts{
				AskObjective:      "What is today's objective? For example: %s.",
				AskProperty:       "Which property? For example: %s.",
				AskField:          "Which field? For example: %s.",
				ObjectiveAccepted: "Objective: %s.",
				PropertyAccepted:  "Property: %s.",
				FieldAccepted:     "Field: %s.",
				UnknownObjective:  "I did not recognize the objective. Say, for example: %s.",
				UnknownProperty:   "I did not recognize the property. Say, for example: %s.",
				UnknownField:      "I did not recognize the field. Say, for example: %s.",
				Confirm:           "Start the day with %s, %s, field %s? Say sim to confirm.",
				ConfirmRetry:      "Say sim to start the day or cancelar to give up.",
				Incomplete:        "Fill in objective, property and field before starting the day.",
				Started:           "Day started. Have a good shift!",
				Cancelled:         "Start of day cancelled.",
				GiveUp:            "I could not understand. Please fill in the day manually.",
			},
		}
	default:
		return Messages{
			NotUnderstood:    "Desculpe, não entendi. Pode repetir?",
			Listening:        "Estou ouvindo",
			Saved:            "Audio gravado com sucesso",
			SaveFailed:       "Erro ao gravar audio",
			ManualEntry:      "Não consegui entender a resposta. Preencha o início do dia manualmente.",
			PermissionTitle:  "Voz",
			PermissionDenied: "Permissão de microfone negada",
			DayTitle:         "Início do dia",
			Wizard: WizardPrompts{
				AskObjective:      "Qual o objetivo de hoje? Por exemplo: %s.",
				AskProperty:       "Em qual propriedade? Por exemplo: %s.",
				AskField:          "Qual o talhão? Por exemplo: %s.",
				ObjectiveAccepted: "Objetivo: %s.",
				PropertyAccepted:  "Propriedade: %s.",
				FieldAccepted:     "Talhão: %s.",
				UnknownObjective:  "Não reconheci o objetivo. Diga, por exemplo: %s.",
				UnknownProperty:   "Não reconheci a propriedade. Diga, por exemplo: %s.",
				UnknownField:      "Não reconheci o talhão. Diga, por exemplo: %s.",
				Confirm:           "Confirma o início do dia: %s, %s, talhão %s? Diga sim para confirmar.",
				ConfirmRetry:      "Diga sim para iniciar o dia ou cancelar para desistir.",
				Incomplete:        "Preencha objetivo, propriedade e talhão antes de iniciar o dia.",
				Started:           "Dia iniciado. Bom trabalho!",
				Cancelled:         "Início do dia cancelado.",
				GiveUp:            "Não consegui entender. Preencha os dados do dia manualmente.",
			},
		}
	}
}
