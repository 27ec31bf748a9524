// Package cli parses the agrovoz command line.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandRun       Command = "run"
	CommandListen    Command = "listen"
	CommandDictate   Command = "dictate"
	CommandReport    Command = "report"
	CommandDay       Command = "day"
	CommandCancelDay Command = "cancel-day"
	CommandStop      Command = "stop"
	CommandCancel    Command = "cancel"
	CommandStatus    Command = "status"
	CommandRecords   Command = "records"
	CommandDelete    Command = "delete"
	CommandDevices   Command = "devices"
	CommandDoctor    Command = "doctor"
	CommandVersion   Command = "version"
	CommandHelp      Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandRun:       {},
	CommandListen:    {},
	CommandDictate:   {},
	CommandReport:    {},
	CommandDay:       {},
	CommandCancelDay: {},
	CommandStop:      {},
	CommandCancel:    {},
	CommandStatus:    {},
	CommandRecords:   {},
	CommandDelete:    {},
	CommandDevices:   {},
	CommandDoctor:    {},
	CommandVersion:   {},
	CommandHelp:      {},
}

// Forwarded reports whether the command is sent to a running daemon.
func (c Command) Forwarded() bool {
	switch c {
	case CommandListen, CommandDictate, CommandReport, CommandDay,
		CommandCancelDay, CommandStop, CommandCancel, CommandStatus,
		CommandRecords, CommandDelete:
		return true
	default:
		return false
	}
}

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
	Debug      bool
	// ID is the record argument of delete.
	ID string
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		case "--debug":
			parsed.Debug = true
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			if cmd == CommandDelete {
				if i+1 >= len(args) || strings.TrimSpace(args[i+1]) == "" {
					return Parsed{}, errors.New("delete requires a record id")
				}
				i++
				parsed.ID = args[i]
			}
			if i != len(args)-1 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
		}
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--debug] <command>

Commands:
  run         Start the daemon that owns the recognizer and microphone
  listen      Listen for a voice command
  dictate     Dictate a note (say "finalizar" to save)
  report      Dictate a pest report: description ponto property ponto pest
  day         Start the day by voice (objective, property, field)
  cancel-day  Cancel the start-of-day dialogue
  stop        Stop listening and save what was dictated
  cancel      Stop listening and discard; silences prompts
  status      Print current state
  records     List saved notes, pest reports and workdays
  delete ID   Delete a saved note or pest report and its audio
  devices     List available input devices
  doctor      Run configuration and environment checks
  version     Print version information
  help        Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/agrovoz/config.jsonc)
  --debug         Log recognizer events at debug level
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
