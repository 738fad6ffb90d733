package main

import "dbaccel/cmd"

func main() {
	cmd.Execute()
}
