package main

import "github.com/brogergvhs/mangakit/cmd"

func main() {
	cmd.Execute()
}
