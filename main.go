package main

import "netifmgr/cmd"

func main() {
	cmd.Execute()
}
