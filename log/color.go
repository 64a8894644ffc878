package log

const colorReset = "\033[0m"

var levelColors = map[LogLevel]string{
	Debug: "\033[34m",
	Info:  "\033[32m",
	Warn:  "\033[33m",
	Error: "\033[31m",
	Fatal: "\033[35m",
}

// Color is the ANSI escape a terminal line of this level starts with.
// Unknown levels get the reset sequence.
func (l LogLevel) Color() string {
	if c, ok := levelColors[l]; ok {
		return c
	}
	return colorReset
}

// paint wraps line in the level's color.
func (l LogLevel) paint(line string) string {
	return l.Color() + line + colorReset
}
