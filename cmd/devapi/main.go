package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/fieldcrm/internal/devapi"
	"github.com/dmitrijs2005/fieldcrm/internal/devapi/config"
	"github.com/dmitrijs2005/fieldcrm/internal/logging"
	"github.com/gin-gonic/gin"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	if logging.ParseLevel(cfg.LogLevel) > logging.ParseLevel("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	app, err := devapi.NewApp(cfg, logging.New(cfg.LogLevel, os.Stdout))
	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}
