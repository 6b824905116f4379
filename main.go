package main

import "github.com/francois-poidevin/stationtracker/cli/cmd"

func main() {
	cmd.Execute()
}
