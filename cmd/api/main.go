package main

import (
	"log"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/punchamoorthee/walletops/internal/api"
	"github.com/punchamoorthee/walletops/internal/config"
	"github.com/punchamoorthee/walletops/internal/service"
	"github.com/punchamoorthee/walletops/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	st, err := store.New(cfg.DBSource)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer st.Close()

	var cache *redis.Client
	if cfg.RedisAddr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer cache.Close()
	}

	distributors := store.NewDistributors(st, cache)
	wallet := service.NewWallet(st.Pool, distributors, service.Options{
		MinTransfer:   cfg.MinTransferAmount,
		ApprovedCodes: cfg.ApprovedCodes(),
		Gateway: service.GatewayOptions{
			ID:         cfg.GatewayID,
			Mode:       cfg.GatewayMode,
			MerchantID: cfg.GatewayMerchantID,
			ReturnURL:  cfg.GatewayReturnURL,
		},
	})
	handler := api.NewHandler(st, wallet)

	log.Printf("Server starting on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, handler.Router()); err != nil {
		log.Fatal(err)
	}
}
