package main

import "github.com/tensorfuse/fusegen/cmd/fusegen/cmd"

func main() {
	cmd.Execute()
}
