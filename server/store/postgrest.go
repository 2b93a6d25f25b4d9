package store

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/kontiki/avisos/shared"
)

// PostgrestClient talks to the relational store through its PostgREST
// endpoint, the same generic select/insert/upsert/rpc surface the rest of
// the service is written against.
type PostgrestClient struct {
	client *resty.Client
	logg   *zap.SugaredLogger
}

func NewPostgrestClient(config shared.SupabaseConfig, logg *zap.SugaredLogger) *PostgrestClient {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(config.URL, "/") + "/rest/v1").
		SetTimeout(15 * time.Second).
		SetHeader("apikey", config.Key).
		SetHeader("Authorization", "Bearer "+config.Key).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &PostgrestClient{client: client, logg: logg}
}

func (pc *PostgrestClient) InsertClient(ctx context.Context, client Client) (*Client, error) {
	var rows []Client
	if err := pc.insert(ctx, clientsTable, client, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s insert returned no record", clientsTable)
	}
	return &rows[0], nil
}

func (pc *PostgrestClient) UpsertClient(ctx context.Context, client Client) (*Client, error) {
	var rows []Client
	if err := pc.upsert(ctx, clientsTable, "telefono", client, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		// Some deployments strip return=representation; recover the id
		// with a follow-up lookup.
		return pc.FindClientByPhone(ctx, client.Telefono)
	}
	return &rows[0], nil
}

func (pc *PostgrestClient) FindClientByPhone(ctx context.Context, telefono string) (*Client, error) {
	var rows []Client
	query := url.Values{}
	query.Set("telefono", "eq."+telefono)
	query.Set("limit", "1")

	if err := pc.selectFrom(ctx, clientsTable, query, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (pc *PostgrestClient) ListClients(ctx context.Context) ([]Client, error) {
	var rows []Client
	query := url.Values{}
	query.Set("order", "id.asc")

	if err := pc.selectFrom(ctx, clientsTable, query, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (pc *PostgrestClient) InsertExtinguisher(ctx context.Context, ext Extinguisher) (*Extinguisher, error) {
	var rows []Extinguisher
	if err := pc.insert(ctx, extinguishersTable, ext, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s insert returned no record", extinguishersTable)
	}
	return &rows[0], nil
}

func (pc *PostgrestClient) UpsertExtinguisher(ctx context.Context, ext Extinguisher) (*Extinguisher, error) {
	var rows []Extinguisher
	if err := pc.upsert(ctx, extinguishersTable, "nro_serie", ext, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &ext, nil
	}
	return &rows[0], nil
}

func (pc *PostgrestClient) ListExtinguishers(ctx context.Context) ([]Extinguisher, error) {
	var rows []Extinguisher
	query := url.Values{}
	query.Set("order", "id.asc")

	if err := pc.selectFrom(ctx, extinguishersTable, query, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (pc *PostgrestClient) DueOnDate(ctx context.Context, fecha string) ([]DueItem, error) {
	var rows []DueItem
	resp, err := pc.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"fecha_objetivo": fecha}).
		SetResult(&rows).
		Post("/rpc/" + dueOnDateFn)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%s rpc failed: %s", dueOnDateFn, resp.String())
	}
	return rows, nil
}

func (pc *PostgrestClient) UpcomingBetween(ctx context.Context, desde, hasta string) ([]UpcomingItem, error) {
	var rows []UpcomingItem
	query := url.Values{}
	query.Set("select", "nombre,telefono,nro_serie,tipo,vencimiento")
	query.Set("opt_in", "is.true")
	query.Add("vencimiento", "gte."+desde)
	query.Add("vencimiento", "lte."+hasta)
	query.Set("order", "vencimiento.asc")

	if err := pc.selectFrom(ctx, upcomingView, query, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (pc *PostgrestClient) InsertNotice(ctx context.Context, notice Notice) error {
	resp, err := pc.client.R().
		SetContext(ctx).
		SetBody(notice).
		Post("/" + noticesTable)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("%s insert failed: %s", noticesTable, resp.String())
	}
	return nil
}

func (pc *PostgrestClient) Counts(ctx context.Context, desde, hasta string) (*Stats, error) {
	clients, err := pc.count(ctx, clientsTable, url.Values{})
	if err != nil {
		return nil, err
	}

	extinguishers, err := pc.count(ctx, extinguishersTable, url.Values{})
	if err != nil {
		return nil, err
	}

	expiringQuery := url.Values{}
	expiringQuery.Add("vencimiento", "gte."+desde)
	expiringQuery.Add("vencimiento", "lte."+hasta)
	expiring, err := pc.count(ctx, extinguishersTable, expiringQuery)
	if err != nil {
		return nil, err
	}

	return &Stats{Clients: clients, Extinguishers: extinguishers, ExpiringSoon: expiring}, nil
}

// ---------------------------------------------------------------------------------//
// Request helpers
// --------------------------------------------------------------------------------//

func (pc *PostgrestClient) insert(ctx context.Context, table string, record, result interface{}) error {
	resp, err := pc.client.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody(record).
		SetResult(result).
		Post("/" + table)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("%s insert failed: %s", table, resp.String())
	}
	return nil
}

func (pc *PostgrestClient) upsert(ctx context.Context, table, conflictKey string, record, result interface{}) error {
	resp, err := pc.client.R().
		SetContext(ctx).
		SetQueryParam("on_conflict", conflictKey).
		SetHeader("Prefer", "resolution=merge-duplicates,return=representation").
		SetBody(record).
		SetResult(result).
		Post("/" + table)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("%s upsert failed: %s", table, resp.String())
	}
	return nil
}

func (pc *PostgrestClient) selectFrom(ctx context.Context, table string, query url.Values, result interface{}) error {
	resp, err := pc.client.R().
		SetContext(ctx).
		SetQueryParamsFromValues(query).
		SetResult(result).
		Get("/" + table)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("%s select failed: %s", table, resp.String())
	}
	return nil
}

func (pc *PostgrestClient) count(ctx context.Context, table string, query url.Values) (int64, error) {
	query.Set("select", "id")

	resp, err := pc.client.R().
		SetContext(ctx).
		SetQueryParamsFromValues(query).
		SetHeader("Prefer", "count=exact").
		SetHeader("Range", "0-0").
		Get("/" + table)
	if err != nil {
		return 0, err
	}
	if resp.IsError() {
		return 0, fmt.Errorf("%s count failed: %s", table, resp.String())
	}

	// Content-Range looks like "0-0/42", or "*/0" when the table is empty.
	contentRange := resp.Header().Get("Content-Range")
	parts := strings.Split(contentRange, "/")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%s count: unexpected Content-Range %q", table, contentRange)
	}

	total, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s count: unexpected Content-Range %q", table, contentRange)
	}
	return total, nil
}
