package main

import "inkwell/notes/cmd"

func main() {
	cmd.Execute()
}
