package main

import "github.com/filevault/vaultctl/cmd"

func main() {
	cmd.Execute()
}
