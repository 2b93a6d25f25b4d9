package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator"
	"github.com/gorilla/mux"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kontiki/avisos/server/importer"
	"github.com/kontiki/avisos/server/logger"
	"github.com/kontiki/avisos/server/notifier"
	"github.com/kontiki/avisos/server/scheduler"
	"github.com/kontiki/avisos/server/store"
	"github.com/kontiki/avisos/server/whatsapp"
	"github.com/kontiki/avisos/shared"
)

var (
	logg     *zap.SugaredLogger
	validate *validator.Validate
)

func init() {
	validate = validator.New()
}

// app bundles the collaborators every handler needs.
type app struct {
	config   *shared.ServerConfig
	store    store.Store
	sender   whatsapp.Sender
	importer *importer.Importer
	notifier *notifier.Notifier
	plan     importer.CountryPlan
}

func Start(config *viper.Viper, devMode bool) {
	logg = logger.NewLogger(devMode)

	serverConfig, err := parseServerConfig(config)
	fatalOnError(err)

	app, err := newApp(serverConfig)
	fatalOnError(err)

	sched := scheduler.New(serverConfig.Avisos.Cron, app.notifier, logg)
	fatalOnError(sched.Start())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%v", serverConfig.Avisos.Listener.Port),
		Handler: app.router(),
	}
	go serve(server)

	// Block until interrupted, then tear down scheduler & server.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	cleanup(sched, server)
}

// RunNotifications wires the collaborators from config and performs a single
// dispatch pass. It backs the `avisos notify` command and produces the same
// outcome shape as the scheduled job and the HTTP trigger.
func RunNotifications(config *viper.Viper, devMode bool) (*notifier.RunResult, error) {
	logg = logger.NewLogger(devMode)

	serverConfig, err := parseServerConfig(config)
	if err != nil {
		return nil, err
	}

	app, err := newApp(serverConfig)
	if err != nil {
		return nil, err
	}

	return app.notifier.RunToday(context.Background()), nil
}

func newApp(serverConfig *shared.ServerConfig) (*app, error) {
	sender, err := whatsapp.NewSender(serverConfig.Whatsapp, logg)
	if err != nil {
		return nil, err
	}

	st := store.NewPostgrestClient(serverConfig.Supabase, logg)
	plan := countryPlan(serverConfig.Avisos.Country)
	registerValidators(validate, plan)

	return &app{
		config:   serverConfig,
		store:    st,
		sender:   sender,
		plan:     plan,
		importer: importer.New(st, plan, logg),
		notifier: notifier.New(st, sender, logg),
	}, nil
}

func (a *app) router() http.Handler {
	router := mux.NewRouter()
	router.Use(contentTypeMiddleware, loggingMiddleware)

	router.HandleFunc("/health", healthHandler).Methods("GET")
	router.HandleFunc("/stats", a.statsHandler).Methods("GET")

	router.HandleFunc("/clients", a.createClientHandler).Methods("POST")
	router.HandleFunc("/clients", a.listClientsHandler).Methods("GET")
	router.HandleFunc("/extinguishers", a.createExtinguisherHandler).Methods("POST")
	router.HandleFunc("/extinguishers", a.listExtinguishersHandler).Methods("GET")

	router.HandleFunc("/import/excel", a.importHandler).Methods("POST")

	router.HandleFunc("/notifications/run-today", a.runTodayHandler).Methods("POST")
	router.Handle("/notifications/run-today/secure",
		requireCronSecret(a.config.Avisos.CronSecret, http.HandlerFunc(a.runTodayHandler))).Methods("POST")

	router.HandleFunc("/testsend/recordatorio", a.testSendHandler).Methods("POST")
	router.HandleFunc("/reports/vencimientos", a.reportHandler).Methods("GET")

	return router
}
