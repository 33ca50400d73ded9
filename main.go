package main

import (
	"fmt"
	"os"

	"github.com/hollowaylabs/cloak/cmd"
	cloakerrors "github.com/hollowaylabs/cloak/internal/errors"
)

func main() {
	if err := cmd.RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cloakerrors.ExitCode(err))
	}
}
