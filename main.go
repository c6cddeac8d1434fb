package main

import "dwhpipe/cmd"

func main() {
	cmd.Execute()
}
