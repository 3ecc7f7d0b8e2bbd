package main

import (
	"github.com/EnockMagara/dependafix-sub000/cmd"
)

func main() {
	cmd.Execute()
}
