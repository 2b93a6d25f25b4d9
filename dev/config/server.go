package config

const SERVER_YML = `
avisos:
  cron:
    timeZone: "America/Argentina/Buenos_Aires"
    at: "09:00"
  listener:
    port: 3000
  cronSecret: "dev-secret"
  country:
    code: "54"
    mobilePrefix: "9"
    trunkPrefix: "0"

supabase:
  url: "http://localhost:54321"
  key: "dev-anon-key"

whatsapp:
  provider: "meta"
  meta:
    accessToken:
    phoneId:
  twilio:
    accountSid:
    authToken:
    whatsappFrom:
`
