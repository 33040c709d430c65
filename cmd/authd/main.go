package main

import "github.com/threat-dragon/authd/cmd/authd/cmd"

func main() {
	cmd.Execute()
}
