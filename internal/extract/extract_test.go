package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/coc-switcher/internal/pdftext"
)

// fakeText returns canned text per document, keyed by the first byte of the
// input. The extractor only sees text, so tests feed layout fixtures directly.
type fakeText struct {
	texts map[byte]string
}

func (f *fakeText) Text(_ context.Context, data []byte) (string, error) {
	return f.texts[data[0]], nil
}

const certificateText = `CERTIFICATE OF CONFORMITY
Contract No: 697.12.5011.01
Customer Item No: 20000646041
Description: 20580903700; PNR-1000N WPTT; Customer Item 20000646041
Quantity: 3
Shipment No: 6SH264587
Date: 20/03/2025

Acquirer:
NETHERLANDS MINISTRY OF DEFENCE
COMMIT

Serial Numbers
SV1001
SV1002
SV1003
`

const packingSlipText = `PACKING SLIP
Packing Slip No: PS-20413
Ship Date: 19/03/2025

Ship To:
Herculeslaan 1
3584 AB Utrecht
`

func testService(t *testing.T) *Service {
	t.Helper()
	return New(&fakeText{texts: map[byte]string{
		'C': certificateText,
		'P': packingSlipText,
	}})
}

func TestExtract_BothDocuments(t *testing.T) {
	svc := testService(t)

	rec, err := svc.Extract(context.Background(), []byte("C"), []byte("P"))
	require.NoError(t, err)

	assert.Equal(t, "697.12.5011.01", rec.ContractNumber)
	assert.Equal(t, "20000646041", rec.ContractItem)
	assert.Equal(t, "20580903700; PNR-1000N WPTT; Customer Item 20000646041", rec.ProductDescription)
	assert.Equal(t, 3, rec.Quantity)
	assert.Equal(t, []string{"SV1001", "SV1002", "SV1003"}, rec.Serials)
	assert.Equal(t, 3, rec.SerialCount)
	assert.Equal(t, "6SH264587", rec.ShipmentNo)
	assert.Equal(t, "PS-20413", rec.PackingSlipNo)
	assert.Equal(t, "587", rec.PartialDeliveryNumber)
	// The packing slip's ship date is scanned first; the certificate date
	// only fills in when the slip carries none.
	assert.Equal(t, "19/Mar/2025", rec.Date)
	assert.Equal(t, "19/03/2025", rec.RawDate)
	assert.Equal(t, "NETHERLANDS MINISTRY OF DEFENCE\nCOMMIT", rec.Acquirer)
	assert.Equal(t, "Herculeslaan 1\n3584 AB Utrecht", rec.DeliveryAddress)

	require.Len(t, rec.Items, 1)
	assert.Equal(t, 3, rec.Items[0].Quantity)
}

func TestExtract_PackingSlipOnly(t *testing.T) {
	svc := testService(t)

	rec, err := svc.Extract(context.Background(), nil, []byte("P"))
	require.NoError(t, err)

	assert.Equal(t, "", rec.ContractNumber)
	assert.Equal(t, "PS-20413", rec.PackingSlipNo)
	assert.Empty(t, rec.Serials)
	assert.NotNil(t, rec.Items)
	assert.Empty(t, rec.Items)
}

func TestExtract_PackingSlipRequired(t *testing.T) {
	svc := testService(t)

	_, err := svc.Extract(context.Background(), []byte("C"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, pdftext.ErrUnreadable)
}

func TestExtract_MalformedCertificateDropsItems(t *testing.T) {
	svc := New(&fakeText{texts: map[byte]string{
		'X': "CERTIFICATE OF CONFORMITY\nContract No: 697.12.5011.01\n",
		'P': packingSlipText,
	}})

	rec, err := svc.Extract(context.Background(), []byte("X"), []byte("P"))
	require.NoError(t, err)

	assert.Equal(t, "697.12.5011.01", rec.ContractNumber)
	assert.Nil(t, rec.Items)
}

func TestExtract_UnlabelledShipmentToken(t *testing.T) {
	svc := New(&fakeText{texts: map[byte]string{
		'X': "Qty: 2\nReference document 6SH264587 enclosed\n",
		'P': packingSlipText,
	}})

	rec, err := svc.Extract(context.Background(), []byte("X"), []byte("P"))
	require.NoError(t, err)
	assert.Equal(t, "6SH264587", rec.ShipmentNo)
}

func TestDeliveryNumber(t *testing.T) {
	assert.Equal(t, "587", deliveryNumber("6SH264587"))
	assert.Equal(t, "042", deliveryNumber("SHP042"))
	assert.Equal(t, "7", deliveryNumber("A7"))
	assert.Equal(t, "", deliveryNumber("NONE"))
}

func TestSerialToken(t *testing.T) {
	assert.Equal(t, "SV1001", serialToken("sv1001"))
	assert.Equal(t, "", serialToken("SV1001 SV1002"))
	assert.Equal(t, "", serialToken("TOTAL"))
}
