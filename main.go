package main

import "github.com/naka-gawa/trending-digest/cmd"

func main() {
	cmd.Execute()
}
