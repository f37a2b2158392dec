package main

import "github.com/razvandimescu/molesk/cmd"

func main() {
	cmd.Execute()
}
