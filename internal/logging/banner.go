package logging

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
)

const (
	reset = "\033[0m"
	bold  = "\033[1m"
	cyan  = "\033[36m"
	dim   = "\033[2m"
)

var logo = [4]string{
	` ___  ___   ___ _  _____ ___ _  _ _   _ ___ `,
	`/ __|/ _ \ / __| |/ / __|_   \ |_| | | | _ )`,
	`\__ \ (_) | (__ ' <| _|  | |) \  _| |_| _ \`,
	`|___/\___/ \___|_|\_\___| |___/|_|\___/|___/`,
}

// PrintBanner prints a small ASCII banner plus the version and listen
// address on startup. Colors are used only when stderr is a TTY.
func PrintBanner(ver, addr string) {
	color := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

	for _, line := range logo {
		if color {
			fmt.Fprintf(os.Stderr, "%s%s%s\n", bold+cyan, line, reset)
		} else {
			fmt.Fprintln(os.Stderr, line)
		}
	}

	if color {
		fmt.Fprintf(os.Stderr, "\n  %sversion%s %s   %saddr%s %s\n\n", dim, reset, ver, dim, reset, addr)
	} else {
		fmt.Fprintf(os.Stderr, "\n  version %s   addr %s\n\n", ver, addr)
	}
}
