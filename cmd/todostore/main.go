// Package main is the todostore command.
package main

import "github.com/mesh-intelligence/todostore/internal/cli"

func main() {
	cli.Execute()
}
