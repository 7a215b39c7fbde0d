package main

import "loan-viability/internal/cli"

func main() {
	cli.Execute()
}
