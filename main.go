package main

import "github.com/frahmantamala/metro-ticketing/cmd"

func main() {
	cmd.Execute()
}
