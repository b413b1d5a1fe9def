package main

import "github.com/fakeyudi/aitrack/cmd"

func main() {
	cmd.Execute()
}
