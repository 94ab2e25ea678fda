package main

import (
	"github.com/c9s/mangogate/pkg/cmd"
)

func main() {
	cmd.Execute()
}
