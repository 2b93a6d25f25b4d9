package whatsapp

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kontiki/avisos/shared"
)

// Template names and language code as registered in the WABA account.
// Both templates take three body parameters: nombre, nro_serie, fecha.
const (
	TemplateReminder    = "recordatorio_vencimiento_es"
	TemplateFinalNotice = "ultimo_aviso_es"
	TemplateLang        = "es_AR"
)

// Sender delivers a pre-approved template message to a WhatsApp recipient.
// Delivery is best-effort: a failed attempt reports ok=false with the
// provider's error detail, never an error the caller has to unwind.
type Sender interface {
	SendTemplate(to, template, lang string, params []string) (ok bool, detail string)
}

func NewSender(config shared.WhatsappConfig, logg *zap.SugaredLogger) (Sender, error) {
	switch config.Provider {
	case "twilio":
		return NewTwilioSender(config.Twilio), nil
	case "meta", "":
		return NewMetaClient(config.Meta, logg), nil
	}
	return nil, fmt.Errorf("unknown whatsapp provider: %q", config.Provider)
}
