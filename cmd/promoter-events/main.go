package main

import "github.com/pfrederiksen/promoter-events/internal/cli"

func main() {
	cli.Execute()
}
