// srcwatch reformats a project and re-runs a program whenever its sources change.
package main

import (
	"os"

	"github.com/hupe1980/srcwatch/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
