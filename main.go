package main

import "github.com/pothiers/cadence/internal/cmd"

func main() {
	cmd.Execute()
}
