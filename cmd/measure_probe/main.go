package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/raushankrgupta/tailorme/config"
	"github.com/raushankrgupta/tailorme/measure"
)

func main() {
	config.LoadConfig()

	provider := flag.String("provider", config.MeasurementProvider, "estimator to use: predict or gemini")
	url := flag.String("url", config.MeasurementAPIURL, "prediction endpoint for the predict provider")
	timeout := flag.Duration("timeout", 90*time.Second, "overall timeout")
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatal("usage: measure_probe [flags] <photo> [photo...]")
	}

	var estimator measure.Estimator
	switch *provider {
	case "gemini":
		estimator = measure.NewGeminiEstimator(config.GeminiAPIKey)
	default:
		estimator = measure.NewPredictClient(*url)
	}
	fmt.Printf("Estimator: %T\n", estimator)

	for _, path := range flag.Args() {
		fmt.Printf("Testing photo: %s\n", path)
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("Failed to read %s: %v\n", path, err)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		est, err := estimator.Estimate(ctx, measure.Image{
			Data:        data,
			Filename:    filepath.Base(path),
			ContentType: mime.TypeByExtension(filepath.Ext(path)),
		})
		cancel()
		if err != nil {
			log.Printf("Failed to estimate measurements: %v\n", err)
			continue
		}

		b, _ := json.MarshalIndent(est, "", "  ")
		fmt.Printf("Measurements: %s\n", string(b))
		fmt.Println("--------------------------------------------------")
	}
}
