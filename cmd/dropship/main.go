package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/dropship/internal/app"
	"github.com/dmitrijs2005/dropship/internal/config"
)

func main() {

	cfg := config.LoadConfig()
	a := app.NewApp(cfg)

	os.Exit(a.Run(context.Background()))

}
