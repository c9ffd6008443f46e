// Package main provides the entry point for the formscan CLI.
//
// formscan finds the fields of business registration forms in HTML pages
// and tells what each field asks for.
//
// Usage:
//
//	formscan detect <file-or-url> ...
//	formscan history [source]
//	formscan compare <source>
//
// See --help for all available options.
package main

func main() {
	Execute()
}
