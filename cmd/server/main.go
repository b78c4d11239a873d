package main

import (
	"context"

	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/linemk/ekicker-shop/internal/app"
	"github.com/linemk/ekicker-shop/internal/app/handlers"
	"github.com/linemk/ekicker-shop/internal/config"
	"github.com/linemk/ekicker-shop/internal/domain/models"
	"github.com/linemk/ekicker-shop/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/ekicker-shop/internal/lib/logger"
	"github.com/linemk/ekicker-shop/internal/lib/logger/handlers/urllog"
	"github.com/linemk/ekicker-shop/internal/lib/objstore"
	"github.com/linemk/ekicker-shop/internal/lib/payment"
	"github.com/linemk/ekicker-shop/internal/service"
	"github.com/linemk/ekicker-shop/internal/storage"
	"github.com/pkg/errors"
)

func main() {
	// загрузка конфигурации
	cfg := config.MustLoad()

	// инициализация логгера, зависит от настройки окружения
	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	// загружаем объект приложения, конфигом и подключением к БД
	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.DB.Close()

	// клиент объектного хранилища для картинок товаров и документов
	fileStore, err := objstore.NewS3Store(context.Background(), cfg.Storage)
	if err != nil {
		log.Error("failed to initialize object storage", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize object storage"))
	}

	// клиент платёжного шлюза
	gateway := payment.NewRazorpayGateway(cfg.Payment.KeyID, cfg.Payment.KeySecret, cfg.Payment.Currency)

	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	// реализация слоев по работе с БД по каждому направлению
	userRepo := storage.NewUserRepository(application.DB)
	productRepo := storage.NewProductRepository(application.DB)
	cartRepo := storage.NewCartRepository(application.DB)
	wishlistRepo := storage.NewWishlistRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)
	documentRepo := storage.NewDocumentRepository(application.DB)

	authService := service.NewAuthService(application.Logger, userRepo, time.Duration(application.Config.JWT.TokenTTL)*time.Minute)
	catalogService := service.NewCatalogService(application.Logger, productRepo, fileStore, cfg.Catalog.DefaultImage)
	cartService := service.NewCartService(application.Logger, application.DB, cartRepo, productRepo)
	wishlistService := service.NewWishlistService(application.Logger, application.DB, wishlistRepo, cartRepo, productRepo)
	checkoutService := service.NewCheckoutService(application.Logger, application.DB, cartRepo, orderRepo, gateway, cfg.Checkout.DeliveryZipCodes)
	documentService := service.NewDocumentService(application.Logger, documentRepo, fileStore)

	// эндпоинт для аутентификации
	router.Post("/api/auth", handlers.AuthHandler(application.Logger, authService))

	// витрина каталога доступна без токена
	router.Get("/api/products", handlers.ProductsHandler(application.Logger, catalogService))
	router.Get("/api/products/{id}", handlers.ProductHandler(application.Logger, catalogService))

	router.Group(func(r chi.Router) {
		jwtMW := jwtmiddleware.NewJWTMiddleware()
		r.Use(jwtMW)

		// корзина
		r.Get("/api/cart", handlers.CartHandler(application.Logger, cartService))
		r.Post("/api/cart", handlers.AddToCartHandler(application.Logger, cartService))
		r.Patch("/api/cart/{id}", handlers.UpdateCartItemHandler(application.Logger, cartService))
		r.Delete("/api/cart/{id}", handlers.RemoveCartItemHandler(application.Logger, cartService))

		// избранное
		r.Get("/api/wishlist", handlers.WishlistHandler(application.Logger, wishlistService))
		r.Post("/api/wishlist", handlers.AddToWishlistHandler(application.Logger, wishlistService))
		r.Delete("/api/wishlist/{id}", handlers.RemoveWishlistItemHandler(application.Logger, wishlistService))
		r.Post("/api/wishlist/{id}/move-to-cart", handlers.MoveToCartHandler(application.Logger, wishlistService))

		// оформление заказа и заказы
		r.Post("/api/checkout", handlers.CheckoutHandler(application.Logger, checkoutService))
		r.Post("/api/checkout/confirm", handlers.ConfirmPaymentHandler(application.Logger, checkoutService))
		r.Get("/api/orders", handlers.OrdersHandler(application.Logger, checkoutService))
		r.Get("/api/orders/{id}", handlers.OrderHandler(application.Logger, checkoutService))

		// админка: товары и документы, доступ по роли из токена
		r.Group(func(ar chi.Router) {
			ar.Use(jwtmiddleware.RequireRole(models.RoleAdmin))
			ar.Post("/api/admin/products", handlers.CreateProductHandler(application.Logger, catalogService))
			ar.Put("/api/admin/products/{id}", handlers.UpdateProductHandler(application.Logger, catalogService))
			ar.Delete("/api/admin/products/{id}", handlers.DeleteProductHandler(application.Logger, catalogService))
			ar.Get("/api/admin/documents", handlers.DocumentsHandler(application.Logger, documentService))
			ar.Post("/api/admin/documents", handlers.UploadDocumentHandler(application.Logger, documentService))
			ar.Delete("/api/admin/documents/{id}", handlers.DeleteDocumentHandler(application.Logger, documentService))
		})
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	log.Info("server gracefully stopped")
}
