package main

import "github.com/pubsync/pubsync/internal/cli"

func main() {
	cli.Execute()
}
