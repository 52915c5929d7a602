package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/kiosk404/sankhya-agent/internal/ssa"
)

func main() {
	ssa.NewApp("ssa").Run()
}
