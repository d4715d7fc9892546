// main package for psfix command-line tool
// Package main is the entry point for the psfix CLI.
package main

import "psfix.dev/pkg/psfix/cmd"

func main() {
	cmd.Execute()
}
