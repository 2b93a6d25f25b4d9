package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kontiki/avisos/server/importer"
	"github.com/kontiki/avisos/server/notifier"
	"github.com/kontiki/avisos/server/store"
	"github.com/kontiki/avisos/server/whatsapp"
	"github.com/kontiki/avisos/shared"
)

func newTestApp(cronSecret string) (*app, *store.InMemory, *whatsapp.SenderStub) {
	logg = zap.NewNop().Sugar()

	plan := importer.DefaultCountryPlan()
	registerValidators(validate, plan)

	st := store.NewInMemory()
	sender := &whatsapp.SenderStub{}
	config := &shared.ServerConfig{}
	config.Avisos.CronSecret = cronSecret

	return &app{
		config:   config,
		store:    st,
		sender:   sender,
		plan:     plan,
		importer: importer.New(st, plan, logg),
		notifier: notifier.New(st, sender, logg),
	}, st, sender
}

func doRequest(a *app, req *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	a.router().ServeHTTP(recorder, req)
	return recorder
}

func decodePayload(t *testing.T, recorder *httptest.ResponseRecorder) ResponsePayload {
	t.Helper()
	var payload ResponsePayload
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&payload))
	return payload
}

func multipartFile(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return buf, writer.FormDataContentType()
}

func TestHealthHandler(t *testing.T) {
	a, _, _ := newTestApp("")

	recorder := doRequest(a, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"ok": true}`, recorder.Body.String())
}

func TestCreateClientHandler(t *testing.T) {
	a, st, _ := newTestApp("")

	body := `{"nombre": "Ana", "telefono": "0351 123-4567", "empresa": "Kon-Tiki"}`
	recorder := doRequest(a, httptest.NewRequest("POST", "/clients", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, recorder.Code)
	payload := decodePayload(t, recorder)
	assert.True(t, payload.Success)

	require.Len(t, st.Clients, 1)
	assert.Equal(t, "+5493511234567", st.Clients[0].Telefono, "phone is normalized before persisting")
	assert.True(t, st.Clients[0].OptIn, "opt_in defaults to true")
}

func TestCreateClientHandlerRejectsBadPhone(t *testing.T) {
	a, st, _ := newTestApp("")

	body := `{"nombre": "Ana", "telefono": "no-es-un-numero"}`
	recorder := doRequest(a, httptest.NewRequest("POST", "/clients", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	payload := decodePayload(t, recorder)
	assert.False(t, payload.Success)
	assert.NotEmpty(t, payload.Errors)
	assert.Empty(t, st.Clients)
}

func TestCreateExtinguisherHandlerRejectsBadDate(t *testing.T) {
	a, _, _ := newTestApp("")

	body := `{"cliente_id": 1, "nro_serie": "KT-001", "tipo": "ABC", "vencimiento": "01/10/2026"}`
	recorder := doRequest(a, httptest.NewRequest("POST", "/extinguishers", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestCreateExtinguisherHandler(t *testing.T) {
	a, st, _ := newTestApp("")

	body := `{"cliente_id": 1, "nro_serie": "KT-001", "tipo": "ABC",
		"vencimiento": "2026-10-01", "ultima_recarga": "2025-10-01"}`
	recorder := doRequest(a, httptest.NewRequest("POST", "/extinguishers", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Len(t, st.Extinguishers, 1)
	assert.Equal(t, "2026-10-01", st.Extinguishers[0].Vencimiento)
	require.NotNil(t, st.Extinguishers[0].UltimaRecarga)
	assert.Equal(t, "2025-10-01", *st.Extinguishers[0].UltimaRecarga)
}

func TestImportHandler(t *testing.T) {
	a, st, _ := newTestApp("")

	csv := "Nombre,Telefono,Nro Serie,Tipo,Vencimiento\n" +
		"Ana,+5493511234567,KT-001,ABC,2026-10-01\n"
	buf, contentType := multipartFile(t, "clientes.csv", []byte(csv))

	req := httptest.NewRequest("POST", "/import/excel", buf)
	req.Header.Set("Content-Type", contentType)
	recorder := doRequest(a, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	payload := decodePayload(t, recorder)
	assert.True(t, payload.Success)
	assert.Len(t, st.Clients, 1)
}

func TestImportHandlerRejectsUnsupportedFile(t *testing.T) {
	a, _, _ := newTestApp("")

	buf, contentType := multipartFile(t, "clientes.txt", []byte("nombre;telefono"))
	req := httptest.NewRequest("POST", "/import/excel", buf)
	req.Header.Set("Content-Type", contentType)

	recorder := doRequest(a, req)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestImportHandlerRequiresFileField(t *testing.T) {
	a, _, _ := newTestApp("")

	recorder := doRequest(a, httptest.NewRequest("POST", "/import/excel", nil))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestSecureRunTodayHandler(t *testing.T) {
	a, _, _ := newTestApp("s3cret")

	testCases := []struct {
		name   string
		secret string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong secret", "nope", http.StatusUnauthorized},
		{"correct secret", "s3cret", http.StatusOK},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/notifications/run-today/secure", nil)
			if tc.secret != "" {
				req.Header.Set("X-Cron-Secret", tc.secret)
			}
			assert.Equal(t, tc.want, doRequest(a, req).Code)
		})
	}
}

func TestSecureRunTodayHandlerClosedWhenUnconfigured(t *testing.T) {
	a, _, _ := newTestApp("")

	req := httptest.NewRequest("POST", "/notifications/run-today/secure", nil)
	req.Header.Set("X-Cron-Secret", "anything")

	assert.Equal(t, http.StatusUnauthorized, doRequest(a, req).Code)
}

func TestRunTodayHandlerDispatchesDueNotices(t *testing.T) {
	a, st, sender := newTestApp("")

	client, err := st.UpsertClient(context.Background(), store.Client{
		Nombre: "Ana", Telefono: "+5493511111111", OptIn: true,
	})
	require.NoError(t, err)
	_, err = st.UpsertExtinguisher(context.Background(), store.Extinguisher{
		ClienteID:   client.ID,
		NroSerie:    "KT-001",
		Tipo:        "ABC",
		Vencimiento: time.Now().AddDate(0, 0, 7).Format("2006-01-02"),
	})
	require.NoError(t, err)

	recorder := doRequest(a, httptest.NewRequest("POST", "/notifications/run-today", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Len(t, sender.Calls, 1)
	assert.Equal(t, whatsapp.TemplateReminder, sender.Calls[0].Template)
	assert.Len(t, st.Notices, 1)
}

func TestTestSendHandler(t *testing.T) {
	a, _, sender := newTestApp("")

	recorder := doRequest(a, httptest.NewRequest("POST",
		"/testsend/recordatorio?to=%2B5493511111111&nombre=Ana", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Len(t, sender.Calls, 1)
	assert.Equal(t, "+5493511111111", sender.Calls[0].To)
	assert.Equal(t, "Ana", sender.Calls[0].Params[0])
	assert.Equal(t, "KT-0001", sender.Calls[0].Params[1], "serie falls back to the sample value")
}

func TestTestSendHandlerRejectsBadRecipient(t *testing.T) {
	a, _, sender := newTestApp("")

	recorder := doRequest(a, httptest.NewRequest("POST", "/testsend/recordatorio?to=abc", nil))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Empty(t, sender.Calls)
}

func TestReportHandlerServesPDF(t *testing.T) {
	a, st, _ := newTestApp("")

	client, err := st.UpsertClient(context.Background(), store.Client{
		Nombre: "Ana", Telefono: "+5493511111111", OptIn: true,
	})
	require.NoError(t, err)
	_, err = st.UpsertExtinguisher(context.Background(), store.Extinguisher{
		ClienteID:   client.ID,
		NroSerie:    "KT-001",
		Tipo:        "ABC",
		Vencimiento: time.Now().AddDate(0, 0, 10).Format("2006-01-02"),
	})
	require.NoError(t, err)

	recorder := doRequest(a, httptest.NewRequest("GET", "/reports/vencimientos?dias=15", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/pdf", recorder.Header().Get("Content-Type"))
	assert.Contains(t, recorder.Header().Get("Content-Disposition"), "vencimientos_15d.pdf")
	assert.True(t, bytes.HasPrefix(recorder.Body.Bytes(), []byte("%PDF-")),
		"body starts with the PDF magic bytes")
}

func TestReportHandlerValidatesDias(t *testing.T) {
	a, _, _ := newTestApp("")

	for _, dias := range []string{"0", "366", "abc", "-1"} {
		recorder := doRequest(a, httptest.NewRequest("GET",
			fmt.Sprintf("/reports/vencimientos?dias=%s", dias), nil))
		assert.Equal(t, http.StatusBadRequest, recorder.Code, "dias=%s", dias)
	}
}

func TestStatsHandler(t *testing.T) {
	a, st, _ := newTestApp("")

	client, err := st.UpsertClient(context.Background(), store.Client{
		Nombre: "Ana", Telefono: "+5493511111111", OptIn: true,
	})
	require.NoError(t, err)
	_, err = st.UpsertExtinguisher(context.Background(), store.Extinguisher{
		ClienteID:   client.ID,
		NroSerie:    "KT-001",
		Tipo:        "ABC",
		Vencimiento: time.Now().AddDate(0, 0, 10).Format("2006-01-02"),
	})
	require.NoError(t, err)

	recorder := doRequest(a, httptest.NewRequest("GET", "/stats", nil))

	require.Equal(t, http.StatusOK, recorder.Code)

	var payload struct {
		Success bool        `json:"success"`
		Data    store.Stats `json:"data"`
	}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&payload))
	assert.True(t, payload.Success)
	assert.Equal(t, int64(1), payload.Data.Clients)
	assert.Equal(t, int64(1), payload.Data.ExpiringSoon)
}
