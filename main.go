package main

import "github.com/chaos-io/eraser-bench/cmd"

func main() {
	cmd.Execute()
}
