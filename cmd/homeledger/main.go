package main

import "github.com/homeledger/homeledger/internal/cli"

func main() {
	cli.Execute()
}
