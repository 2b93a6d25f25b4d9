package importer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/kontiki/avisos/server/store"
)

func newTestImporter(st store.Store) *Importer {
	return New(st, DefaultCountryPlan(), zap.NewNop().Sugar())
}

func TestImportRejectsUnsupportedFormat(t *testing.T) {
	im := newTestImporter(store.NewInMemory())

	_, err := im.Import(context.Background(), "clientes.txt", []byte("nombre;telefono"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestImportRejectsFileMissingRequiredColumns(t *testing.T) {
	st := store.NewInMemory()
	im := newTestImporter(st)

	csv := "Nombre,Celular,Serie,Tipo\n" +
		"Ana,+5493511234567,KT-001,ABC\n"

	_, err := im.Import(context.Background(), "clientes.csv", []byte(csv))

	var missingErr *MissingColumnsError
	require.ErrorAs(t, err, &missingErr)
	assert.Equal(t, []string{ColVencimiento}, missingErr.Columns)

	// Whole-file precondition: nothing was processed.
	assert.Empty(t, st.Clients)
	assert.Empty(t, st.Extinguishers)
}

func TestImportCollectsRowErrorsWithoutAbortingBatch(t *testing.T) {
	st := store.NewInMemory()
	im := newTestImporter(st)

	csv := "Nombre,Teléfono (+E.164),Nro Serie,Tipo,Vencimiento\n" +
		"Malo,sin-numero,KT-001,ABC,2026-10-01\n" +
		"Ana,+5493511234567,KT-002,ABC,2026-10-01\n"

	summary, err := im.Import(context.Background(), "clientes.csv", []byte(csv))
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Inserted)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, 2, summary.Errors[0].Row, "display index counts the header row")
	assert.Contains(t, summary.Errors[0].Message, "invalid phone")

	// The valid row made it to persistence.
	require.Len(t, st.Clients, 1)
	assert.Equal(t, "Ana", st.Clients[0].Nombre)
	require.Len(t, st.Extinguishers, 1)
	assert.Equal(t, "KT-002", st.Extinguishers[0].NroSerie)
	assert.Equal(t, st.Clients[0].ID, st.Extinguishers[0].ClienteID)
}

func TestImportIsIdempotent(t *testing.T) {
	st := store.NewInMemory()
	im := newTestImporter(st)

	csv := "Nombre,Telefono,Nro Serie,Tipo,Vencimiento,Empresa\n" +
		"Ana,+5493511234567,KT-001,ABC,2026-10-01,Kon-Tiki\n" +
		"Bruno,+5493512222333,KT-002,CO2,2026-11-15,\n"

	_, err := im.Import(context.Background(), "clientes.csv", []byte(csv))
	require.NoError(t, err)

	summary, err := im.Import(context.Background(), "clientes.csv", []byte(csv))
	require.NoError(t, err)

	// Re-importing the identical file updates instead of duplicating.
	assert.Equal(t, 2, summary.Inserted)
	assert.Len(t, st.Clients, 2)
	assert.Len(t, st.Extinguishers, 2)
}

func TestImportRowDefaults(t *testing.T) {
	st := store.NewInMemory()
	im := newTestImporter(st)

	csv := "Nombre,Telefono,Nro Serie,Tipo,Vencimiento,Ultima Recarga,Opt In\n" +
		"Ana,0351 123 4567,KT-001,ABC,15/08/2026,,no\n"

	summary, err := im.Import(context.Background(), "clientes.csv", []byte(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Inserted)

	require.Len(t, st.Clients, 1)
	assert.Equal(t, "+5493511234567", st.Clients[0].Telefono)
	assert.Equal(t, "", st.Clients[0].Empresa)
	assert.False(t, st.Clients[0].OptIn)

	require.Len(t, st.Extinguishers, 1)
	assert.Equal(t, "2026-08-15", st.Extinguishers[0].Vencimiento)
	assert.Nil(t, st.Extinguishers[0].UltimaRecarga)
}

func TestImportRowStoreFailureIsCollected(t *testing.T) {
	st := store.NewInMemory()
	st.UpsertExtinguisherErr = fmt.Errorf("duplicate key value")
	im := newTestImporter(st)

	csv := "Nombre,Telefono,Nro Serie,Tipo,Vencimiento\n" +
		"Ana,+5493511234567,KT-001,ABC,2026-10-01\n"

	summary, err := im.Import(context.Background(), "clientes.csv", []byte(csv))
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Inserted)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0].Message, "extinguisher upsert")
}

func TestImportWorkbookPrefersClientesSheet(t *testing.T) {
	st := store.NewInMemory()
	im := newTestImporter(st)

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", "resumen")
	_, err := f.NewSheet("clientes")
	require.NoError(t, err)

	require.NoError(t, f.SetSheetRow("resumen", "A1", &[]interface{}{"nada", "que", "importar"}))
	require.NoError(t, f.SetSheetRow("clientes", "A1",
		&[]interface{}{"Nombre", "Celular", "Nro Serie", "Tipo", "Vencimiento"}))
	require.NoError(t, f.SetSheetRow("clientes", "A2",
		&[]interface{}{"Ana", "+5493511234567", "KT-001", "ABC", "2026-10-01"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	summary, err := im.Import(context.Background(), "clientes.xlsx", buf.Bytes())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Inserted)
	assert.Empty(t, summary.Errors)
	require.Len(t, st.Clients, 1)
	assert.Equal(t, "Ana", st.Clients[0].Nombre)
}

func TestImportAnaEndToEnd(t *testing.T) {
	st := store.NewInMemory()
	im := newTestImporter(st)

	vencimiento := time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	csv := "Nombre,WhatsApp,Nro Serie,Tipo,Vencimiento\n" +
		fmt.Sprintf("Ana,011 15-5555-1234,KT-007,ABC,%s\n", vencimiento)

	summary, err := im.Import(context.Background(), "clientes.csv", []byte(csv))
	require.NoError(t, err)
	require.Equal(t, 1, summary.Inserted)

	due, err := st.DueOnDate(context.Background(), vencimiento)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "Ana", due[0].Nombre)
	assert.Equal(t, "KT-007", due[0].NroSerie)
	assert.Regexp(t, `^\+[0-9]{8,15}$`, due[0].Telefono)
}
