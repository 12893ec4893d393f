package internal

import "io"

// Command selects what Run does.
type Command string

const (
	CommandUpdate  Command = "update"
	CommandCheck   Command = "check"
	CommandWatch   Command = "watch"
	CommandServe   Command = "serve"
	CommandMCP     Command = "mcp"
	CommandHistory Command = "history"
)

// usesHistory reports whether the command records or reads run history.
// check and mcp never touch it, so they leave no files behind.
func (c Command) usesHistory() bool {
	switch c {
	case CommandUpdate, CommandWatch, CommandServe, CommandHistory:
		return true
	}
	return false
}

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config       *Config
	command      Command
	stdout       io.Writer
	stderr       io.Writer
	historyLimit int
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithCommand sets the command to run. Defaults to CommandUpdate.
func WithCommand(c Command) Option {
	return func(a *application) {
		a.command = c
	}
}

// WithStdout sets the writer for console reports.
func WithStdout(w io.Writer) Option {
	return func(a *application) {
		a.stdout = w
	}
}

// WithStderr sets the writer for log output.
func WithStderr(w io.Writer) Option {
	return func(a *application) {
		a.stderr = w
	}
}

// WithHistoryLimit sets how many runs the history command lists.
func WithHistoryLimit(n int) Option {
	return func(a *application) {
		a.historyLimit = n
	}
}
