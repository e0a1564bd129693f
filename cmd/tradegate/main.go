package main

import "tradegate/internal/cli"

func main() {
	cli.Execute()
}
