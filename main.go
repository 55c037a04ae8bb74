package main

import (
	"Tunedrop/cmd"
)

func main() {
	cmd.Execute()
}
