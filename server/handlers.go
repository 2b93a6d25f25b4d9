package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kontiki/avisos/server/importer"
	"github.com/kontiki/avisos/server/report"
	"github.com/kontiki/avisos/server/store"
	"github.com/kontiki/avisos/server/whatsapp"
)

type ResponsePayload struct {
	Errors  []string    `json:"errors,omitempty"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

type clientPayload struct {
	Nombre   string `json:"nombre" validate:"required"`
	Telefono string `json:"telefono" validate:"required,phone_number"`
	Empresa  string `json:"empresa"`
	OptIn    *bool  `json:"opt_in"`
}

type extinguisherPayload struct {
	ClienteID     uint   `json:"cliente_id" validate:"required"`
	NroSerie      string `json:"nro_serie" validate:"required"`
	Tipo          string `json:"tipo" validate:"required"`
	Vencimiento   string `json:"vencimiento" validate:"required,ymd_date"`
	UltimaRecarga string `json:"ultima_recarga" validate:"omitempty,ymd_date"`
}

func healthHandler(rw http.ResponseWriter, r *http.Request) {
	json.NewEncoder(rw).Encode(map[string]bool{"ok": true})
}

func (a *app) statsHandler(rw http.ResponseWriter, r *http.Request) {
	hoy := time.Now()
	stats, err := a.store.Counts(r.Context(),
		hoy.Format("2006-01-02"),
		hoy.AddDate(0, 0, 30).Format("2006-01-02"))
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: stats})
}

func (a *app) createClientHandler(rw http.ResponseWriter, r *http.Request) {
	data := clientPayload{}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	if errs := validate.Struct(data); errs != nil {
		writeResponse(rw, ResponsePayload{Errors: strings.Split(errs.Error(), "\n")}, http.StatusBadRequest)
		return
	}

	telefono, _ := a.plan.NormalizePhone(data.Telefono)
	optIn := true
	if data.OptIn != nil {
		optIn = *data.OptIn
	}

	client, err := a.store.InsertClient(r.Context(), store.Client{
		Nombre:   strings.TrimSpace(data.Nombre),
		Telefono: telefono,
		Empresa:  strings.TrimSpace(data.Empresa),
		OptIn:    optIn,
	})
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: client})
}

func (a *app) listClientsHandler(rw http.ResponseWriter, r *http.Request) {
	clients, err := a.store.ListClients(r.Context())
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: clients})
}

func (a *app) createExtinguisherHandler(rw http.ResponseWriter, r *http.Request) {
	data := extinguisherPayload{}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	if errs := validate.Struct(data); errs != nil {
		writeResponse(rw, ResponsePayload{Errors: strings.Split(errs.Error(), "\n")}, http.StatusBadRequest)
		return
	}

	ext := store.Extinguisher{
		ClienteID:   data.ClienteID,
		NroSerie:    strings.TrimSpace(data.NroSerie),
		Tipo:        strings.TrimSpace(data.Tipo),
		Vencimiento: data.Vencimiento,
	}
	if data.UltimaRecarga != "" {
		ext.UltimaRecarga = &data.UltimaRecarga
	}

	created, err := a.store.InsertExtinguisher(r.Context(), ext)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: created})
}

func (a *app) listExtinguishersHandler(rw http.ResponseWriter, r *http.Request) {
	extinguishers, err := a.store.ListExtinguishers(r.Context())
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: extinguishers})
}

func (a *app) importHandler(rw http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"'file' form field is required"}}, http.StatusBadRequest)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	summary, err := a.importer.Import(r.Context(), header.Filename, content)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, importErrorStatus(err))
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: summary})
}

func (a *app) runTodayHandler(rw http.ResponseWriter, r *http.Request) {
	result := a.notifier.RunToday(r.Context())
	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: result})
}

func (a *app) testSendHandler(rw http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	to, ok := a.plan.NormalizePhone(query.Get("to"))
	if !ok {
		writeResponse(rw, ResponsePayload{Errors: []string{"'to' must be a valid phone number"}}, http.StatusBadRequest)
		return
	}

	nombre := queryDefault(query.Get("nombre"), "Cliente")
	serie := queryDefault(query.Get("serie"), "KT-0001")
	venc := queryDefault(query.Get("venc"), time.Now().AddDate(0, 1, 0).Format("2006-01-02"))

	sent, detail := a.sender.SendTemplate(to, whatsapp.TemplateReminder, whatsapp.TemplateLang,
		[]string{nombre, serie, venc})

	json.NewEncoder(rw).Encode(ResponsePayload{
		Success: true,
		Data:    map[string]interface{}{"ok": sent, "error": detail},
	})
}

func (a *app) reportHandler(rw http.ResponseWriter, r *http.Request) {
	dias := 30
	if raw := r.URL.Query().Get("dias"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 365 {
			writeResponse(rw, ResponsePayload{Errors: []string{"'dias' must be between 1 and 365"}}, http.StatusBadRequest)
			return
		}
		dias = parsed
	}

	hoy := time.Now()
	rows, err := a.store.UpcomingBetween(r.Context(),
		hoy.Format("2006-01-02"),
		hoy.AddDate(0, 0, dias).Format("2006-01-02"))
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	pdf, err := report.Build(rows, dias, hoy)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	rw.Header().Set("Content-Type", "application/pdf")
	rw.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="vencimientos_%dd.pdf"`, dias))
	rw.Write(pdf)
}

func importErrorStatus(err error) int {
	var missingErr *importer.MissingColumnsError
	if errors.Is(err, importer.ErrUnsupportedFormat) ||
		errors.Is(err, importer.ErrBadFile) ||
		errors.As(err, &missingErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func queryDefault(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}
