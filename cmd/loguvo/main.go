package main

import "github.com/loguvo/loguvo/internal/cli"

func main() {
	cli.Execute()
}
