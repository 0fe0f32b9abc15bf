package main

import "github.com/CraigKelly/blr/cmd"

func main() {
	cmd.Execute()
}
