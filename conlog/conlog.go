// SPDX-License-Identifier: GPL-2.0-or-later

package conlog

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var out io.Writer = os.Stdout

// Setup installs a console writer on w as the global logger.
func Setup(w io.Writer, debug bool) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly})
}

// SetOutput changes where Printf writes to.
func SetOutput(w io.Writer) {
	out = w
}

// Printf writes plain command output, not a log line.
func Printf(format string, v ...interface{}) {
	fmt.Fprintf(out, format, v...)
}
