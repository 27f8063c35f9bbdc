package main

import "github.com/mesa4core/lmlmigrate/cmd"

func main() {
	cmd.Execute()
}
