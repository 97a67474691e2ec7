package main

import "github.com/fridaforge/fridaforge/cmd"

func main() {
	cmd.Execute()
}
