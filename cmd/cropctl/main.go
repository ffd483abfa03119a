package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"crop-advisor/internal/cfg"
	"crop-advisor/internal/client"
	"crop-advisor/internal/common"
	"crop-advisor/internal/features"

	"github.com/rs/zerolog/log"
)

func main() {
	config, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	var (
		url     = flag.String("url", config.PredictorURL, "Base URL of the predictor service")
		timeout = flag.Duration("timeout", 5*time.Second, "Request timeout")
		health  = flag.Bool("health", false, "Only check service health")

		reading features.Reading
	)
	flag.Float64Var(&reading.N, "N", 0, "Nitrogen")
	flag.Float64Var(&reading.P, "P", 0, "Phosphorus")
	flag.Float64Var(&reading.K, "K", 0, "Potassium")
	flag.Float64Var(&reading.PH, "pH", 0, "Soil pH")
	flag.Float64Var(&reading.Temp, "Temp", 0, "Temperature in Celsius")
	flag.Float64Var(&reading.Humidity, "Humidity", 0, "Relative humidity in percent")
	flag.Float64Var(&reading.Rainfall, "Rainfall", 0, "Rainfall in mm")
	flag.Parse()

	common.SetupLogging(config.LogLevel, config.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := client.New(*url, *timeout)

	if *health {
		loaded, err := c.Health(ctx)
		if err != nil {
			log.Fatal().Err(err).Str("url", *url).Msg("Health check failed")
		}
		fmt.Printf("model_loaded=%t\n", loaded)
		if !loaded {
			os.Exit(1)
		}
		return
	}

	resp, err := c.Predict(ctx, reading)
	if err != nil {
		log.Fatal().Err(err).Str("url", *url).Msg("Prediction failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		log.Fatal().Err(err).Msg("failed to print response")
	}
}
