package main

import "github.com/skypro1111/binspect/internal/cli"

func main() {
	cli.Execute()
}
