package banner

import (
	"fmt"
	"io"
)

const Version = "1.0.0"

// Print writes the startup banner to w.
func Print(w io.Writer, tagline string) {
	banner := `
  ____                          _  __
 / __ \__ _____ __ _____ ____  | |/ /__ ___ ___  ___ ____
/ /_/ / // / -_) // / -_)___/  |   < -_) -_) _ \/ -_) __/
\___\_\_,_/\__/\_,_/\__/       |_|\_\__/\__/ .__/\__/_/
                                          /_/  v%s - %s
    `
	fmt.Fprintf(w, banner, Version, tagline)
	fmt.Fprintln(w, "\n------------------------------------------------")
}
