// main.go
//
// Entry point; delegates CLI handling to the cobra root command in cmd/root.go

package main

import (
	"github.com/tank-sim/tank-sim/cmd"
)

func main() {
	cmd.Execute()
}
