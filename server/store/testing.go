package store

import (
	"context"
	"sync"
)

// InMemory is a Store double for tests. Upserts honor the same natural keys
// as the live schema, and DueOnDate/UpcomingBetween answer from the stored
// records the way the server-side query and view would.
type InMemory struct {
	mu            sync.Mutex
	Clients       []Client
	Extinguishers []Extinguisher
	Notices       []Notice

	// Optional canned failures.
	UpsertClientErr       error
	UpsertExtinguisherErr error
	InsertNoticeErr       error

	nextClientID       uint
	nextExtinguisherID uint
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (m *InMemory) InsertClient(ctx context.Context, client Client) (*Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextClientID++
	client.ID = m.nextClientID
	m.Clients = append(m.Clients, client)
	return &client, nil
}

func (m *InMemory) UpsertClient(ctx context.Context, client Client) (*Client, error) {
	if m.UpsertClientErr != nil {
		return nil, m.UpsertClientErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.Clients {
		if m.Clients[i].Telefono == client.Telefono {
			client.ID = m.Clients[i].ID
			m.Clients[i] = client
			return &client, nil
		}
	}

	m.nextClientID++
	client.ID = m.nextClientID
	m.Clients = append(m.Clients, client)
	return &client, nil
}

func (m *InMemory) FindClientByPhone(ctx context.Context, telefono string) (*Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.Clients {
		if m.Clients[i].Telefono == telefono {
			client := m.Clients[i]
			return &client, nil
		}
	}
	return nil, ErrNotFound
}

func (m *InMemory) ListClients(ctx context.Context) ([]Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Client{}, m.Clients...), nil
}

func (m *InMemory) InsertExtinguisher(ctx context.Context, ext Extinguisher) (*Extinguisher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextExtinguisherID++
	ext.ID = m.nextExtinguisherID
	m.Extinguishers = append(m.Extinguishers, ext)
	return &ext, nil
}

func (m *InMemory) UpsertExtinguisher(ctx context.Context, ext Extinguisher) (*Extinguisher, error) {
	if m.UpsertExtinguisherErr != nil {
		return nil, m.UpsertExtinguisherErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.Extinguishers {
		if m.Extinguishers[i].NroSerie == ext.NroSerie {
			ext.ID = m.Extinguishers[i].ID
			m.Extinguishers[i] = ext
			return &ext, nil
		}
	}

	m.nextExtinguisherID++
	ext.ID = m.nextExtinguisherID
	m.Extinguishers = append(m.Extinguishers, ext)
	return &ext, nil
}

func (m *InMemory) ListExtinguishers(ctx context.Context) ([]Extinguisher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Extinguisher{}, m.Extinguishers...), nil
}

func (m *InMemory) DueOnDate(ctx context.Context, fecha string) ([]DueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	due := []DueItem{}
	for _, ext := range m.Extinguishers {
		if ext.Vencimiento != fecha {
			continue
		}
		client, ok := m.clientByID(ext.ClienteID)
		if !ok || !client.OptIn {
			continue
		}
		due = append(due, DueItem{
			MatafuegoID: ext.ID,
			Nombre:      client.Nombre,
			Telefono:    client.Telefono,
			NroSerie:    ext.NroSerie,
			Vencimiento: ext.Vencimiento,
		})
	}
	return due, nil
}

func (m *InMemory) UpcomingBetween(ctx context.Context, desde, hasta string) ([]UpcomingItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	upcoming := []UpcomingItem{}
	for _, ext := range m.Extinguishers {
		if ext.Vencimiento < desde || ext.Vencimiento > hasta {
			continue
		}
		client, ok := m.clientByID(ext.ClienteID)
		if !ok || !client.OptIn {
			continue
		}
		upcoming = append(upcoming, UpcomingItem{
			Nombre:      client.Nombre,
			Telefono:    client.Telefono,
			NroSerie:    ext.NroSerie,
			Tipo:        ext.Tipo,
			Vencimiento: ext.Vencimiento,
		})
	}
	return upcoming, nil
}

func (m *InMemory) InsertNotice(ctx context.Context, notice Notice) error {
	if m.InsertNoticeErr != nil {
		return m.InsertNoticeErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Notices = append(m.Notices, notice)
	return nil
}

func (m *InMemory) Counts(ctx context.Context, desde, hasta string) (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &Stats{
		Clients:       int64(len(m.Clients)),
		Extinguishers: int64(len(m.Extinguishers)),
	}
	for _, ext := range m.Extinguishers {
		if ext.Vencimiento >= desde && ext.Vencimiento <= hasta {
			stats.ExpiringSoon++
		}
	}
	return stats, nil
}

func (m *InMemory) clientByID(id uint) (Client, bool) {
	for _, client := range m.Clients {
		if client.ID == id {
			return client, true
		}
	}
	return Client{}, false
}
