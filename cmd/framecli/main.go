package main

import (
	"github.com/robotalks/syncframe/pkg/cli/sh"
	"github.com/robotalks/syncframe/pkg/config"
)

//go-build: CGO_ENABLED=0

func init() {
	config.SetupFlags()
	sh.SetupFlags()
}

func main() {
	sh.Main()
}
