// README: Entry point; loads config, wires the engine, starts the HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"resbot/internal/ai"
	"resbot/internal/bot"
	"resbot/internal/breaker"
	"resbot/internal/config"
	"resbot/internal/dates"
	httptransport "resbot/internal/http"
	"resbot/internal/infra"
	"resbot/internal/logger"
	"resbot/internal/maps"
	"resbot/internal/metrics"
	"resbot/internal/modules/catalog"
	"resbot/internal/modules/conversation"
	"resbot/internal/modules/intent"
	"resbot/internal/modules/inventory"
	"resbot/internal/modules/payment"
	"resbot/internal/modules/reservation"
	"resbot/internal/modules/users"
	"resbot/internal/nlp"
	"resbot/internal/templates"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Timezone).Msg("invalid timezone")
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database init")
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()

	reg := metrics.NewRegistry()
	dateResolver := dates.NewResolver(loc)

	catalogStore := catalog.NewStore(dbPool)
	catalogSvc := catalog.NewService(catalogStore)

	intentStore := intent.NewStore(dbPool)
	intentSvc := intent.NewService(intentStore)

	// The normalizer vocabulary is the static dictionary plus the keyword
	// corpus known at startup.
	var extraVocab []string
	if kws, err := intentStore.ListSystemKeywords(ctx); err == nil {
		for _, kw := range kws {
			extraVocab = append(extraVocab, kw.Value)
		}
	} else {
		log.Warn().Err(err).Msg("system keywords unavailable at startup")
	}
	normalizer := nlp.NewNormalizer(extraVocab)
	extractor := nlp.NewExtractor(dateResolver)

	renderer, err := templates.NewRenderer()
	if err != nil {
		log.Fatal().Err(err).Msg("template bundles")
	}

	userStore := users.NewStore(dbPool)
	inventorySvc := inventory.NewService(inventory.NewStore(dbPool), log, nil)
	flowSvc := reservation.NewService(reservation.NewStore(dbPool), inventorySvc, userStore, log)

	paymentSvc := payment.NewService(payment.NewStore(dbPool), payment.NewHTTPProvider(cfg.Payments.BaseURL), log)

	var llm ai.Classifier
	if cfg.AI.GeminiKey != "" {
		gemini, err := ai.NewGeminiClassifier(ctx, cfg.AI.GeminiKey, cfg.AI.Model)
		if err != nil {
			log.Fatal().Err(err).Msg("gemini init")
		}
		defer gemini.Close()
		llm = gemini
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set; tier 3 disabled, running on tiers 1-2 only")
	}

	var geocoder bot.AddressResolver
	if cfg.Maps.APIKey != "" {
		g, err := maps.NewGeocoder(cfg.Maps.APIKey)
		if err != nil {
			log.Fatal().Err(err).Msg("maps init")
		}
		geocoder = g
	}

	engine := bot.NewEngine(bot.Deps{
		Catalog:    catalogSvc,
		Intents:    intentSvc,
		LLM:        llm,
		Breaker:    breaker.New(breaker.Config(cfg.Breaker)),
		Contexts:   conversation.NewStore(redisClient, cfg.Engine.ContextTTL),
		Users:      userStore,
		Flow:       flowSvc,
		Payments:   paymentSvc,
		Renderer:   renderer,
		Normalizer: normalizer,
		Extractor:  extractor,
		Dates:      dateResolver,
		Metrics:    reg,
		Geocoder:   geocoder,
		Engine:     cfg.Engine,
		Log:        log,
	})

	router := httptransport.NewRouter(engine, reg, log)
	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.HTTP.Addr).Msg("resbot listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server")
	}
}
