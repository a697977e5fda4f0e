package main

import "github.com/theirongolddev/chainfund/cmd"

func main() {
	cmd.Execute()
}
