package main

import "github.com/encodeous/batsim/cmd"

func main() {
	cmd.Execute()
}
