package main

import "github.com/leca/dt-image-store/internal/cli"

func main() {
	cli.Execute()
}
