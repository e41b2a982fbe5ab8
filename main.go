package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raushankrgupta/tailorme/api"
	"github.com/raushankrgupta/tailorme/auth"
	"github.com/raushankrgupta/tailorme/config"
	"github.com/raushankrgupta/tailorme/measure"
	"github.com/raushankrgupta/tailorme/orders"
	"github.com/raushankrgupta/tailorme/records"
	"github.com/raushankrgupta/tailorme/stats"
	"github.com/raushankrgupta/tailorme/store"
	"github.com/raushankrgupta/tailorme/utils"
)

func newStore() store.Store {
	if config.StoreBackend == "memory" {
		log.Println("STORE_BACKEND=memory, data is kept in process only")
		return store.NewMemory()
	}

	// Initialize MongoDB
	if err := utils.ConnectMongo(config.MongoURI); err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	s := store.NewMongo(utils.GetDatabase(config.DBName))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}
	return s
}

func newEstimator() measure.Estimator {
	if config.MeasurementProvider == "gemini" {
		if config.GeminiAPIKey == "" {
			log.Fatal("MEASUREMENT_PROVIDER=gemini needs GEMINI_API_KEY")
		}
		log.Println("Using Gemini measurement estimator")
		return measure.NewGeminiEstimator(config.GeminiAPIKey)
	}
	log.Printf("Using measurement service at %s", config.MeasurementAPIURL)
	return measure.NewPredictClient(config.MeasurementAPIURL)
}

func newMailer() auth.Mailer {
	if config.SendGridAPIKey == "" {
		log.Println("SENDGRID_API_KEY not set, emails are disabled")
		return nil
	}
	return utils.NewSendGridMailer(config.SendGridAPIKey, config.EmailSender)
}

func main() {
	config.LoadConfig()
	if config.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	s := newStore()
	defer utils.DisconnectMongo()

	revoker := utils.NewTokenRevoker(config.RedisURL)
	defer revoker.Close()

	h := &api.Handler{
		Auth: auth.NewService(s,
			utils.NewTokenIssuer(config.JWTSecret, config.JWTTTL),
			revoker,
			newMailer()),
		Orders: orders.NewService(s,
			stats.Calculator{ActiveWindow: time.Duration(config.ActiveWindowDays) * 24 * time.Hour},
			config.LeaderboardSize),
		Estimator: newEstimator(),
		Google:    api.NewGoogleOAuthConfig(config.GoogleClientID, config.GoogleClientSecret, config.GoogleRedirectURL),
	}

	if config.AWSBucketName != "" {
		images, err := utils.NewImageStore(context.Background(), config.AWSRegion, config.AWSBucketName)
		if err != nil {
			log.Fatalf("Failed to initialize S3: %v", err)
		}
		h.Images = images
		h.Records = records.NewService(s, images)
	} else {
		log.Println("AWS_BUCKET_NAME not set, measurement photos are not archived")
		h.Records = records.NewService(s, nil)
	}

	router := api.NewRouter(h)

	// Open streams watch the base context, so they end on shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:        ":" + config.Port,
		Handler:     utils.LatencyMiddleware(router),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		fmt.Printf("Server starting on port %s...\n", config.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}
}
