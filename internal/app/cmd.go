package app

// Command is the mode the binary starts in.
type Command string

const (
	// CommandServe starts the HTTP server.
	CommandServe Command = "serve"
	// CommandInitDB applies the embedded schema migrations and exits.
	CommandInitDB Command = "init-db"
)

// ParseCommand picks the subcommand from the command line arguments. Empty
// or unknown arguments fall back to CommandServe.
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	switch args[0] {
	case string(CommandInitDB):
		return CommandInitDB
	default:
		return CommandServe
	}
}
