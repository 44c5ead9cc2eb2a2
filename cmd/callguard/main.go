package main

import "github.com/vaultops/callguard/internal/cli"

func main() {
	cli.Execute()
}
