package shared

type ServerConfig struct {
	Avisos   AvisosConfig   `mapstructure:"avisos" validate:"required"`
	Supabase SupabaseConfig `mapstructure:"supabase" validate:"required"`
	Whatsapp WhatsappConfig `mapstructure:"whatsapp" validate:"required"`
}

type AvisosConfig struct {
	Cron       CronConfig     `mapstructure:"cron" validate:"required"`
	Listener   ListenerConfig `mapstructure:"listener" validate:"required"`
	Country    CountryConfig  `mapstructure:"country"`
	CronSecret string         `mapstructure:"cronSecret"`
}

type CronConfig struct {
	TimeZone string `mapstructure:"timeZone" validate:"required"`
	At       string `mapstructure:"at" validate:"required"`
}

type ListenerConfig struct {
	Port int `mapstructure:"port" validate:"required"`
}

// CountryConfig carries the numbering-plan constants used by the phone
// normalizer. Empty fields fall back to the Argentine defaults.
type CountryConfig struct {
	Code         string `mapstructure:"code"`
	MobilePrefix string `mapstructure:"mobilePrefix"`
	TrunkPrefix  string `mapstructure:"trunkPrefix"`
}

type SupabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
	Key string `mapstructure:"key" validate:"required"`
}

type WhatsappConfig struct {
	Provider string       `mapstructure:"provider" validate:"required,oneof=meta twilio"`
	Meta     MetaConfig   `mapstructure:"meta"`
	Twilio   TwilioConfig `mapstructure:"twilio"`
}

type MetaConfig struct {
	AccessToken string `mapstructure:"accessToken"`
	PhoneID     string `mapstructure:"phoneId"`
}

type TwilioConfig struct {
	AccountSid   string `mapstructure:"accountSid"`
	AuthToken    string `mapstructure:"authToken"`
	WhatsappFrom string `mapstructure:"whatsappFrom"`
}
