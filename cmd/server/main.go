package main

import (
	"flag"
	"log"

	"github.com/joho/godotenv"

	"github.com/xhad/tutor/internal/app"
	"github.com/xhad/tutor/pkg/config"
	"github.com/xhad/tutor/pkg/logger"
	"github.com/xhad/tutor/server"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.Parse()

	_ = godotenv.Load()

	if err := run(configPath); err != nil {
		log.Fatal(err)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			log.Printf("config: %s", e.Error())
		}
		return errs[0]
	}

	logg, err := logger.New(cfg.Server.Mode)
	if err != nil {
		return err
	}
	defer logg.Sync()

	svc, cleanup, err := app.BuildService(cfg, logg)
	defer cleanup()
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Mode:           cfg.Server.Mode,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, svc, logg)
	if err != nil {
		return err
	}

	return srv.Run()
}
