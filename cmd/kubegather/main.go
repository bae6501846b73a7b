package main

import (
	"github.com/wtuxedo/kubegather/cmd/kubegather/cli"
)

func main() {
	cli.InitAndExecute()
}
