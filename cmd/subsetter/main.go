package main

import "github.com/relsubset/subsetter/cmd/subsetter/cmd"

func main() {
	cmd.Execute()
}
