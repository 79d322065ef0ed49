package main

import "github.com/jjenkins/lottosync/cmd"

func main() {
	cmd.Execute()
}
