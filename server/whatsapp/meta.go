package whatsapp

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/kontiki/avisos/shared"
)

const graphAPIBaseURL = "https://graph.facebook.com/v20.0"

// MetaClient sends template messages through the WhatsApp Cloud API.
type MetaClient struct {
	client *resty.Client
	config shared.MetaConfig
	logg   *zap.SugaredLogger
}

func NewMetaClient(config shared.MetaConfig, logg *zap.SugaredLogger) *MetaClient {
	return newMetaClient(graphAPIBaseURL, config, logg)
}

func newMetaClient(baseURL string, config shared.MetaConfig, logg *zap.SugaredLogger) *MetaClient {
	client := resty.New().
		SetBaseURL(fmt.Sprintf("%s/%s", baseURL, config.PhoneID)).
		SetTimeout(20 * time.Second).
		SetAuthToken(config.AccessToken).
		SetHeader("Content-Type", "application/json")

	return &MetaClient{client: client, config: config, logg: logg}
}

type templateParam struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type templateComponent struct {
	Type       string          `json:"type"`
	Parameters []templateParam `json:"parameters"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

type messageTemplate struct {
	Name       string              `json:"name"`
	Language   templateLanguage    `json:"language"`
	Components []templateComponent `json:"components"`
}

type templateMessage struct {
	MessagingProduct string          `json:"messaging_product"`
	To               string          `json:"to"`
	Type             string          `json:"type"`
	Template         messageTemplate `json:"template"`
}

func (mc *MetaClient) SendTemplate(to, template, lang string, params []string) (bool, string) {
	if mc.config.AccessToken == "" || mc.config.PhoneID == "" {
		return false, "META_ACCESS_TOKEN / META_WABA_PHONE_ID not configured"
	}

	parameters := make([]templateParam, 0, len(params))
	for _, p := range params {
		parameters = append(parameters, templateParam{Type: "text", Text: p})
	}

	payload := templateMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "template",
		Template: messageTemplate{
			Name:     template,
			Language: templateLanguage{Code: lang},
			Components: []templateComponent{
				{Type: "body", Parameters: parameters},
			},
		},
	}

	resp, err := mc.client.R().
		SetBody(payload).
		Post("/messages")
	if err != nil {
		mc.logg.Errorf("whatsapp template %q to %s failed: %v", template, to, err)
		return false, err.Error()
	}
	if resp.IsError() {
		return false, resp.String()
	}
	return true, ""
}
