package main

import "sentiment-alpha/internal/cli"

func main() {
	cli.Execute()
}
