package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator"
	"github.com/spf13/viper"

	"github.com/kontiki/avisos/server/importer"
	"github.com/kontiki/avisos/server/scheduler"
	"github.com/kontiki/avisos/shared"
)

// ---------------------------------------------------------------------------------//
// Handler Helper functions
// --------------------------------------------------------------------------------//

func writeResponse(rw http.ResponseWriter, payLoad ResponsePayload, statusCode int) {
	if statusCode >= http.StatusInternalServerError {
		logg.Error(payLoad.Errors)
	} else if statusCode >= http.StatusBadRequest {
		logg.Info(payLoad.Errors)
	}

	rw.WriteHeader(statusCode)
	json.NewEncoder(rw).Encode(payLoad)
}

func registerValidators(validate *validator.Validate, plan importer.CountryPlan) {
	_ = validate.RegisterValidation("phone_number", func(fl validator.FieldLevel) bool {
		_, ok := plan.NormalizePhone(fl.Field().String())
		return ok
	})

	_ = validate.RegisterValidation("ymd_date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("2006-01-02", fl.Field().String())
		return err == nil
	})
}

// ---------------------------------------------------------------------------------//
// Server Helper functions
// --------------------------------------------------------------------------------//

func parseServerConfig(config *viper.Viper) (*shared.ServerConfig, error) {
	// Secrets can come straight from the environment instead of the file.
	config.BindEnv("supabase.url", "SUPABASE_URL")
	config.BindEnv("supabase.key", "SUPABASE_KEY")
	config.BindEnv("whatsapp.meta.accessToken", "META_ACCESS_TOKEN")
	config.BindEnv("whatsapp.meta.phoneId", "META_WABA_PHONE_ID")
	config.BindEnv("whatsapp.twilio.accountSid", "TWILIO_ACCOUNT_SID")
	config.BindEnv("whatsapp.twilio.authToken", "TWILIO_AUTH_TOKEN")
	config.BindEnv("whatsapp.twilio.whatsappFrom", "TWILIO_WHATSAPP_FROM")
	config.BindEnv("avisos.cronSecret", "CRON_SECRET")

	serverConfig := &shared.ServerConfig{}
	if err := config.Unmarshal(serverConfig); err != nil {
		return nil, err
	}

	if err := validate.Struct(serverConfig); err != nil {
		return nil, err
	}
	return serverConfig, nil
}

func countryPlan(config shared.CountryConfig) importer.CountryPlan {
	plan := importer.DefaultCountryPlan()
	if config.Code != "" {
		plan = importer.CountryPlan{
			Code:         config.Code,
			MobilePrefix: config.MobilePrefix,
			TrunkPrefix:  config.TrunkPrefix,
		}
	}
	return plan
}

func serve(server *http.Server) {
	logg.Infof("avisos server is listening on port%v", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Fatal(err)
	}
}

func cleanup(sched *scheduler.Scheduler, server *http.Server) {
	sched.Stop()

	// Shutdown server gracefully
	ctxShutDown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutDown); err != nil {
		logg.Fatalf("avisos server shutdown failed:%+s", err)
	}

	logg.Infof("avisos server stopped properly")
}

func fatalOnError(err error) {
	if err != nil {
		logg.Fatal(err)
	}
}
