package main

import "github.com/kontiki/avisos/cmd"

func main() {
	cmd.Execute()
}
