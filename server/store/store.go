package store

import (
	"context"

	"github.com/pkg/errors"
)

// Table, view & stored-query names as they exist in the live schema.
const (
	clientsTable       = "clientes"
	extinguishersTable = "matafuegos"
	noticesTable       = "avisos"
	upcomingView       = "vw_matafuegos_clientes"
	dueOnDateFn        = "vencen_en_fecha"
)

var ErrNotFound = errors.New("record not found")

// Client is a notification recipient. Telefono is the natural key: the
// schema enforces at most one client per normalized E.164 value.
type Client struct {
	ID       uint   `json:"id,omitempty"`
	Nombre   string `json:"nombre"`
	Telefono string `json:"telefono"`
	Empresa  string `json:"empresa"`
	OptIn    bool   `json:"opt_in"`
}

// Extinguisher belongs to a client. NroSerie is the natural key, so
// re-importing the same serial updates instead of duplicating.
// Dates cross the wire as YYYY-MM-DD strings.
type Extinguisher struct {
	ID            uint    `json:"id,omitempty"`
	ClienteID     uint    `json:"cliente_id"`
	NroSerie      string  `json:"nro_serie"`
	Tipo          string  `json:"tipo"`
	Vencimiento   string  `json:"vencimiento"`
	UltimaRecarga *string `json:"ultima_recarga,omitempty"`
}

// Notice is one delivery attempt. The avisos table is append-only; records
// are never updated or deleted by this service.
type Notice struct {
	MatafuegoID uint    `json:"matafuego_id"`
	FechaEnvio  string  `json:"fecha_envio"`
	Plantilla   string  `json:"plantilla"`
	Estado      string  `json:"estado"`
	Error       *string `json:"error,omitempty"`
}

// DueItem is a row from the vencen_en_fecha stored query: an extinguisher
// expiring on the target date, joined with its opt-in client's contact info.
type DueItem struct {
	MatafuegoID uint   `json:"id_matafuego"`
	Nombre      string `json:"nombre"`
	Telefono    string `json:"telefono"`
	NroSerie    string `json:"nro_serie"`
	Vencimiento string `json:"vencimiento"`
}

// UpcomingItem is a report row from the matafuegos/clientes join view.
type UpcomingItem struct {
	Nombre      string `json:"nombre"`
	Telefono    string `json:"telefono"`
	NroSerie    string `json:"nro_serie"`
	Tipo        string `json:"tipo"`
	Vencimiento string `json:"vencimiento"`
}

type Stats struct {
	Clients       int64 `json:"clientes"`
	Extinguishers int64 `json:"matafuegos"`
	ExpiringSoon  int64 `json:"proximos"`
}

// Store is the persistence collaborator. Upserts are keyed on the natural
// keys above and must be safe under concurrent invocations; the daily job
// and the manual trigger may overlap.
type Store interface {
	InsertClient(ctx context.Context, client Client) (*Client, error)
	UpsertClient(ctx context.Context, client Client) (*Client, error)
	FindClientByPhone(ctx context.Context, telefono string) (*Client, error)
	ListClients(ctx context.Context) ([]Client, error)

	InsertExtinguisher(ctx context.Context, ext Extinguisher) (*Extinguisher, error)
	UpsertExtinguisher(ctx context.Context, ext Extinguisher) (*Extinguisher, error)
	ListExtinguishers(ctx context.Context) ([]Extinguisher, error)

	DueOnDate(ctx context.Context, fecha string) ([]DueItem, error)
	UpcomingBetween(ctx context.Context, desde, hasta string) ([]UpcomingItem, error)
	InsertNotice(ctx context.Context, notice Notice) error
	Counts(ctx context.Context, desde, hasta string) (*Stats, error)
}
