package main

import "github.com/lockforge/schemaengine/cmd"

func main() {
	cmd.Execute()
}
