package main

import "github.com/jcdickinson/rsfind/cmd"

func main() {
	cmd.Execute()
}
