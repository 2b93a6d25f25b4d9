package whatsapp

import (
	"fmt"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/kontiki/avisos/shared"
)

// TwilioSender is the fallback provider. Twilio's WhatsApp channel has no
// positional-template API compatible with the Cloud API template names, so
// the body is rendered locally from the same parameters.
type TwilioSender struct {
	client *twilio.RestClient
	config shared.TwilioConfig
}

func NewTwilioSender(config shared.TwilioConfig) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.RestClientParams{
		Username: config.AccountSid,
		Password: config.AuthToken,
	})

	return &TwilioSender{client: client, config: config}
}

func (ts *TwilioSender) SendTemplate(to, template, lang string, params []string) (bool, string) {
	if ts.config.AccountSid == "" || ts.config.AuthToken == "" || ts.config.WhatsappFrom == "" {
		return false, "twilio credentials not configured"
	}

	messageParams := &openapi.CreateMessageParams{}
	messageParams.SetFrom("whatsapp:" + ts.config.WhatsappFrom)
	messageParams.SetTo("whatsapp:" + to)
	messageParams.SetBody(renderTemplateBody(template, params))

	resp, err := ts.client.ApiV2010.CreateMessage(messageParams)
	if err != nil {
		return false, err.Error()
	}
	if resp.ErrorMessage != nil && *resp.ErrorMessage != "" {
		return false, *resp.ErrorMessage
	}
	return true, ""
}

func renderTemplateBody(template string, params []string) string {
	// Positional params mirror the WABA templates: nombre, nro_serie, fecha.
	padded := make([]string, 3)
	copy(padded, params)
	nombre, serie, fecha := padded[0], padded[1], padded[2]

	if template == TemplateFinalNotice {
		return fmt.Sprintf(
			"Hola %s, hoy (%s) vence el servicio del matafuego %s. Contactanos para coordinar la recarga.",
			nombre, fecha, serie)
	}
	return fmt.Sprintf(
		"Hola %s, el matafuego %s vence el %s. Agendá la recarga para mantener la certificación al día.",
		nombre, serie, fecha)
}
