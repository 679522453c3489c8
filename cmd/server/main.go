package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/rpattn/esgdash/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		logrus.WithError(err).Error("esgdash failed")
		os.Exit(1)
	}
}
