// Package global holds process-wide flags set from the command line
// before configuration and logging are initialized.
package global

var (
	// DataDir is where config.json and, unless overridden, the state
	// root directory are created.
	DataDir string
	// Debug enables verbose logging and gin's debug mode.
	Debug bool
	// LogStd additionally mirrors log output to stdout even outside Debug.
	LogStd bool
)
