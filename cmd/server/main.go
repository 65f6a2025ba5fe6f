package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Abin-Raju-19/fiteness-pro/modules/subscription"
	"github.com/Abin-Raju-19/fiteness-pro/pkg/billing"
	"github.com/Abin-Raju-19/fiteness-pro/pkg/config"
	"github.com/Abin-Raju-19/fiteness-pro/pkg/entitlement"
	"github.com/Abin-Raju-19/fiteness-pro/pkg/environment"
	"github.com/Abin-Raju-19/fiteness-pro/pkg/httpserver"
	"github.com/Abin-Raju-19/fiteness-pro/pkg/jwt"
	"github.com/Abin-Raju-19/fiteness-pro/pkg/limits"
	"github.com/Abin-Raju-19/fiteness-pro/pkg/logger"
	appmongo "github.com/Abin-Raju-19/fiteness-pro/pkg/mongo"
)

type appConfig struct {
	Environment environment.Environment `env:"APP_ENV" envDefault:"development"`
	ServiceName string                  `env:"APP_NAME" envDefault:"fitness-pro-billing"`
	AppURL      string                  `env:"APP_URL" envDefault:"http://localhost:3000"`
	MongoDB     string                  `env:"MONGODB_DATABASE" envDefault:"fitness_pro"`
	Currency    string                  `env:"PLAN_CURRENCY" envDefault:"INR"`
}

func main() {
	var appCfg appConfig
	config.MustLoad(&appCfg)

	var (
		stripeCfg   billing.StripeConfig
		razorpayCfg billing.RazorpayConfig
		mongoCfg    appmongo.Config
		httpCfg     httpserver.Config
		jwtCfg      jwt.Config
	)
	config.MustLoad(&stripeCfg)
	config.MustLoad(&razorpayCfg)
	config.MustLoad(&mongoCfg)
	config.MustLoad(&httpCfg)
	config.MustLoad(&jwtCfg)

	log := logger.New(
		logger.WithEnvironment(appCfg.Environment, appCfg.ServiceName),
		logger.WithContextExtractors(environment.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	ctx := context.Background()

	db, err := appmongo.NewWithDatabase(ctx, mongoCfg, appCfg.MongoDB)
	if err != nil {
		log.Error("failed to connect to mongo", logger.Error(err))
		os.Exit(1)
	}
	defer func() {
		if err := db.Client().Disconnect(context.Background()); err != nil {
			log.Error("failed to disconnect from mongo", logger.Error(err))
		}
	}()

	tokens, err := jwt.New(jwtCfg)
	if err != nil {
		log.Error("failed to initialize token service", logger.Error(err))
		os.Exit(1)
	}

	store := billing.NewMongoStore(db.Collection("users"))
	stripeProvider := billing.NewStripeProvider(stripeCfg, appCfg.Environment, appCfg.AppURL, log)
	razorpayProvider := billing.NewRazorpayProvider(razorpayCfg, log)

	billingSvc := billing.NewService(store, log, stripeProvider, razorpayProvider)
	limitsSvc := limits.NewService(store)

	subscriptionSvc := subscription.NewService(billingSvc, limitsSvc, subscription.Pricing{
		Currency: appCfg.Currency,
		Amounts: map[entitlement.PlanCode]int64{
			entitlement.PlanSilver:   razorpayCfg.AmountSilver,
			entitlement.PlanGold:     razorpayCfg.AmountGold,
			entitlement.PlanPlatinum: razorpayCfg.AmountPlatinum,
		},
	}, log)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(environment.Middleware(appCfg.Environment))

	r.Get("/health", httpserver.HealthCheckHandler(ctx, log, appmongo.Healthcheck(db.Client())))
	r.Mount("/subscriptions", subscriptionSvc.Handle(jwt.Middleware(tokens)))

	srv := httpserver.NewFromConfig(httpCfg,
		httpserver.WithLogger(log),
		httpserver.WithStartHook(func(l *slog.Logger) {
			l.Info("server starting",
				slog.String("addr", httpCfg.Addr),
				slog.String("env", string(appCfg.Environment)))
		}),
		httpserver.WithStopHook(func(l *slog.Logger) {
			l.Info("server stopped")
		}),
	)

	if err := srv.Run(ctx, r); err != nil {
		log.Error("server exited with error", logger.Error(err))
		os.Exit(1)
	}
}
