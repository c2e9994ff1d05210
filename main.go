package main

import "github.com/rotblauer/cleanspeed/cmd"

func main() {
	cmd.Execute()
}
