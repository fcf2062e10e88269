package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/glowmart-app/storefront/internal/cart"
	"github.com/glowmart-app/storefront/internal/catalog"
	"github.com/glowmart-app/storefront/internal/config"
	"github.com/glowmart-app/storefront/internal/events"
	"github.com/glowmart-app/storefront/internal/gateway"
	"github.com/glowmart-app/storefront/internal/history"
	"github.com/glowmart-app/storefront/internal/httpserver"
	"github.com/glowmart-app/storefront/internal/order"
	"github.com/glowmart-app/storefront/internal/profile"
	"github.com/glowmart-app/storefront/internal/review"
	"github.com/glowmart-app/storefront/internal/session"
	"github.com/glowmart-app/storefront/internal/storage"
	"github.com/glowmart-app/storefront/internal/wishlist"
	"github.com/glowmart-app/storefront/pkg/logging"
	loggingmw "github.com/glowmart-app/storefront/pkg/middleware/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	store, err := storage.Open(cfg.LocalDBPath)
	if err != nil {
		log.Fatalf("local store: %v", err)
	}
	defer store.Close()

	gw := gateway.NewClient(cfg.GatewayURL)

	sessions, err := session.NewManager(gw, store)
	if err != nil {
		log.Fatalf("session manager: %v", err)
	}
	gw.SetTokenSource(sessions)

	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers)
		defer producer.Close()
	}

	catalogSvc := &catalog.Service{GW: gw, ESIndex: cfg.ESIndex}
	if cfg.ESURL != "" {
		es, err := catalog.NewESClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			logger.Warn("search index unavailable, using gateway search", "error", err)
		} else {
			catalogSvc.ES = es
		}
	}

	cartSvc := &cart.Service{GW: gw, Sessions: sessions}
	orderSvc := &order.Service{
		GW:       gw,
		Sessions: sessions,
		Journal:  store,
		Events:   producer,
		Topic:    cfg.OrderTopic,
	}
	wishlistSvc := &wishlist.Service{GW: gw, Sessions: sessions}
	historySvc := &history.Service{GW: gw, Sessions: sessions, Cache: store}
	profileSvc := &profile.Service{GW: gw, Sessions: sessions}
	reviewSvc := &review.Service{GW: gw, Sessions: sessions, Store: store}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		Sessions: sessions,
		Auth:     &httpserver.AuthHTTP{Sessions: sessions},
		Cart:     &httpserver.CartHTTP{Svc: cartSvc},
		Order:    &httpserver.OrderHTTP{Svc: orderSvc, History: historySvc},
		Wishlist: &httpserver.WishlistHTTP{Svc: wishlistSvc},
		Catalog:  &httpserver.CatalogHTTP{Svc: catalogSvc},
		Profile:  &httpserver.ProfileHTTP{Svc: profileSvc},
		Review:   &httpserver.ReviewHTTP{Svc: reviewSvc},
	})

	go func() {
		logger.Info("starting storefront", "port", cfg.ServerPort)
		if err := e.Start(":" + strconv.Itoa(cfg.ServerPort)); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo shutdown", "error", err)
	}
}
