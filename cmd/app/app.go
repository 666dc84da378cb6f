package main

import (
	"os"

	"github.com/DRSN-tech/product-verifier/internal/app"
	config "github.com/DRSN-tech/product-verifier/internal/cfg"
	"github.com/DRSN-tech/product-verifier/pkg/logger"
)

//	@title			Product Verifier API
//	@version		1.0
//	@description	Сравнение фотографии продукта с набором эталонных изображений.
//	@BasePath		/api/v1
func main() {
	log := logger.NewSlogLogger()

	cfg, err := config.Load(log)
	if err != nil {
		log.Errorf(err, "failed to load config")
		os.Exit(1)
	}

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Errorf(err, "failed to initialize app")
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		os.Exit(1)
	}
}
