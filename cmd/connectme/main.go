package main

import "connectme/cmd/connectme/commands"

func main() {
	commands.Execute()
}
