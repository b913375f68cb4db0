package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Dynamo ASCII banner to w.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	lines := []struct{ text, color string }{
		{"  ____                                  ", "#38bdf8"},
		{" |  _ \\ _   _ _ __   __ _ _ __ ___   ___ ", "#60a5fa"},
		{" | | | | | | | '_ \\ / _` | '_ ` _ \\ / _ \\", "#818cf8"},
		{" | |_| | |_| | | | | (_| | | | | | | (_) |", "#a78bfa"},
		{" |____/ \\__, |_| |_|\\__,_|_| |_| |_|\\___/", "#c084fc"},
		{"        |___/                            ", "#e879f9"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
