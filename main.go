// The main package for the linkverify executable.
package main

import (
	"github.com/ai-tools-lab/linkverify/cmd"
)

func main() {
	cmd.Execute()
}
