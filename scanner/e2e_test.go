package scanner_test

import (
	"context"
	"testing"
	"time"

	"github.com/srg/catprint/internal/escpos"
	"github.com/srg/catprint/internal/printer"
	"github.com/srg/catprint/internal/testutils"
	"github.com/srg/catprint/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestScanConnectPrint(t *testing.T) {
	// GOAL: Verify discovery through printing against a simulated AE30 printer
	//
	// TEST SCENARIO: 128-bit ae30 advertisement → connect → subscribe → PrintText("hi") → one chunk, sentinel → success

	helper := testutils.NewTestHelper(t)
	const addr = "C0:FF:EE:00:00:01"

	adv := testutils.NewAdvertisementBuilder().
		WithAddress(addr).
		WithName("MX06").
		WithService128("0000ae30-0000-1000-8000-00805f9b34fb").
		Build()
	link, write, notify := testutils.NewPrinterLink(addr,
		printer.VariantAE30.Service, printer.VariantAE30.Write, printer.VariantAE30.Notify)
	write.OnWrite = func([]byte) {
		time.AfterFunc(10*time.Millisecond, func() { notify.Notify(printer.ReadySentinel) })
	}

	transport := &testutils.MockTransport{}
	transport.On("Scan", mock.Anything, mock.Anything).
		Run(testutils.ReplayAdvertisements(true, adv)).
		Return(nil)
	transport.On("Dial", mock.Anything, addr).Return(link, nil)

	sc := scanner.NewScanner(transport, &scanner.ScanOptions{Duration: time.Second, FirstMatch: true}, helper.Logger)
	m := printer.NewManager(transport, sc, printer.ManagerOptions{
		Session: printer.SessionOptions{ChunkSize: 20, ChunkDelay: time.Millisecond},
		Job:     printer.JobOptions{AckTimeout: time.Second},
	}, helper.Logger)

	found, err := m.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "MX06", found[0].Name)
	assert.Equal(t, printer.VariantAE30, found[0].Variant)

	require.NoError(t, m.Connect(context.Background(), addr))
	assert.Equal(t, printer.StateSubscribed, m.Session().State())

	require.NoError(t, m.PrintText(context.Background(), "hi", escpos.TextStyle{}))
	assert.Equal(t, [][]byte{[]byte("hi\n")}, write.Writes())
	assert.Equal(t, printer.StateIdle, m.Session().State())

	require.NoError(t, m.Disconnect())
	assert.Equal(t, 1, link.Closed())
	transport.AssertExpectations(t)
}
