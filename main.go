package main

import "github.com/naka-gawa/devops-wrapped/cmd"

func main() {
	cmd.Execute()
}
