package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"            _   _       _     ", "#818cf8"},
	{"  _ __ __ _| |_| | __ _| |__  ", "#a78bfa"},
	{" | '__/ _` | __| |/ _` | '_ \\ ", "#c084fc"},
	{" | | | (_| | |_| | (_| | |_) |", "#e879f9"},
	{" |_|  \\__,_|\\__|_|\\__,_|_.__/ ", "#f472b6"},
}

// PrintBanner writes the ratlab banner to w, colored when w is a terminal.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.Profile

	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(p.Color(l.color)))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, out.String("  v"+v+"  :help for commands, exit to quit").Faint())
	}
	fmt.Fprintln(w)
}
