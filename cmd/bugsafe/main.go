// Package main provides the bugsafe CLI entry point.
package main

func main() {
	Execute()
}
