package main

import "github.com/mcoot/convoy/internal/cli"

func main() {
	cli.Execute()
}
