package main

import "github.com/compmat-es/scrunner/internal/cmd"

func main() {
	cmd.Execute()
}
