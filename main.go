package main

import "exam-mirror/cmd"

func main() {
	cmd.Execute()
}
