package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/conformer/pkg/domain"
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(domain.ExitCode(err))
	}
}
