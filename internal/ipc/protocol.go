// Package ipc carries newline-delimited JSON requests between the CLI and the
// daemon over a unix socket.
package ipc

import "time"

// Commands understood by the daemon.
const (
	CommandStatus    = "status"
	CommandListen    = "listen"
	CommandDictate   = "dictate"
	CommandReport    = "report"
	CommandDay       = "day"
	CommandCancelDay = "cancel-day"
	CommandStop      = "stop"
	CommandCancel    = "cancel"
	CommandRecords   = "records"
	CommandDelete    = "delete"
)

type Request struct {
	Command string `json:"command"`
	// ID names the record a delete removes.
	ID string `json:"id,omitempty"`
}

// Record kinds listed by the records command.
const (
	RecordNote    = "note"
	RecordReport  = "report"
	RecordWorkday = "workday"
)

// Record is one saved record as listed to clients.
type Record struct {
	Kind     string    `json:"kind"`
	ID       string    `json:"id"`
	Name     string    `json:"name,omitempty"`
	Text     string    `json:"text,omitempty"`
	Property string    `json:"property,omitempty"`
	Detail   string    `json:"detail,omitempty"`
	File     string    `json:"file,omitempty"`
	Location string    `json:"location,omitempty"`
	At       time.Time `json:"at"`
}

// Response echoes the controller snapshot taken after the command ran.
type Response struct {
	OK         bool     `json:"ok"`
	State      string   `json:"state,omitempty"`
	Mode       string   `json:"mode,omitempty"`
	Purpose    string   `json:"purpose,omitempty"`
	Partial    string   `json:"partial,omitempty"`
	Transcript string   `json:"transcript,omitempty"`
	WizardStep string   `json:"wizard_step,omitempty"`
	LastIntent string   `json:"last_intent,omitempty"`
	Message    string   `json:"message,omitempty"`
	Error      string   `json:"error,omitempty"`
	Records    []Record `json:"records,omitempty"`
}
