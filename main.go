package main

import "github.com/CraigKelly/riskmap/cmd"

func main() {
	cmd.Execute()
}
