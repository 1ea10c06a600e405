package main

import "github.com/thesurlydev/wiwo/cli"

func main() {
	cli.Execute()
}
