package main

import (
	"github.com/shouni/go-lighthouse-check/cmd"
)

func main() {
	cmd.Execute()
}
