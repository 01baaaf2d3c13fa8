package main

import "github.com/iliyamo/library-catalog/cmd/server/commands"

func main() {
	commands.Execute()
}
