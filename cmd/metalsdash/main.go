package main

import "metals-dashboard/internal/cli"

func main() {
	cli.Execute()
}
