package logger

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

const (
	ansiReset = "\033[0m"
	ansiBlue  = "\033[34m"
)

type levelStyle struct{ tag, color string }

var levelStyles = map[zerolog.Level]levelStyle{
	zerolog.TraceLevel: {"TRC", "\033[90m"},
	zerolog.DebugLevel: {"DBG", "\033[36m"},
	zerolog.InfoLevel:  {"INF", "\033[32m"},
	zerolog.WarnLevel:  {"WRN", "\033[33m"},
	zerolog.ErrorLevel: {"ERR", "\033[31m"},
	zerolog.FatalLevel: {"FTL", "\033[35m"},
	zerolog.PanicLevel: {"PNC", "\033[35m"},
}

func paint(s, color string, noColor bool) string {
	if noColor || color == "" {
		return s
	}
	return color + s + ansiReset
}

// newConsoleWriter renders entries as "15:04:05 [MIR][INF] message k:v",
// where MIR is the first three letters of the service name.
func newConsoleWriter(w io.Writer, service string, noColor bool) zerolog.ConsoleWriter {
	prefix := ""
	if len(service) >= 3 {
		prefix = paint("["+strings.ToUpper(service[:3])+"]", ansiBlue, noColor)
	}
	return zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    noColor,
		TimeFormat: "15:04:05",
		FormatLevel: func(i interface{}) string {
			name, _ := i.(string)
			lvl, err := zerolog.ParseLevel(name)
			style, ok := levelStyles[lvl]
			if err != nil || !ok {
				return prefix + "[" + strings.ToUpper(name) + "]"
			}
			return prefix + paint("["+style.tag+"]", style.color, noColor)
		},
		FormatFieldName: func(i interface{}) string { return fmt.Sprintf("%s:", i) },
	}
}
