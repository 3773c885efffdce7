// Command pantry manages a small inventory of named products.
package main

import "github.com/mesh-intelligence/pantry/internal/cli"

func main() {
	cli.Main()
}
