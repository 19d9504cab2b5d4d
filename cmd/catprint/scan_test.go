package main

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/srg/catprint/internal/device"
	"github.com/srg/catprint/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	suitelib "github.com/stretchr/testify/suite"
)

type ScanTestSuite struct {
	CommandTestSuite
}

func (suite *ScanTestSuite) TestScanCmd_Help() {
	// GOAL: Verify scan command displays help text with all flags
	//
	// TEST SCENARIO: Execute scan --help → returns success → output contains description and flag documentation

	output, err := suite.ExecuteCommand("scan", "--help")
	suite.Require().NoError(err, "help command MUST succeed")

	suite.Contains(output, "Scan for nearby BLE thermal printers", "help MUST contain command description")
	suite.Contains(output, "--duration", "help MUST document --duration flag")
	suite.Contains(output, "--format", "help MUST document --format flag")
	suite.Contains(output, "--all", "help MUST document --all flag")
	suite.Contains(output, "--watch", "help MUST document --watch flag")
}

func (suite *ScanTestSuite) TestScanCmd_InvalidFormat() {
	_, err := suite.ExecuteCommand("scan", "--format=invalid")

	suite.Require().Error(err, "invalid format MUST return error")
	suite.Contains(err.Error(), "invalid format 'invalid': must be one of [table json]", "error MUST list valid formats")
	suite.Transport.AssertNotCalled(suite.T(), "Scan", mock.Anything, mock.Anything)
}

func (suite *ScanTestSuite) TestScanCmd_Table() {
	// GOAL: Verify the table lists the printer found and ignores other peripherals
	//
	// TEST SCENARIO: Heart-rate sensor then AE30 printer advertise → table has one row with the variant

	other := testutils.NewAdvertisementBuilder().
		WithAddress("11:22:33:44:55:66").
		WithName("HRM").
		WithService16(0x180d).
		Build()
	suite.ExpectScan(other, suite.PrinterAdvertisement())

	output, err := suite.ExecuteCommand("scan", "--duration", "2s")
	suite.Require().NoError(err)

	testutils.NewTextAsserter(suite.T()).Assert(output, `
NAME  ADDRESS            RSSI     VARIANT  SERVICES
----  -------            ----     -------  --------
MX10  AA:BB:CC:DD:EE:01  -45 dBm  AE30     ae30
Found 1 printer(s)
`)
}

func (suite *ScanTestSuite) TestScanCmd_Watch() {
	// GOAL: Verify --watch prints every printer advertisement live before the summary table
	//
	// TEST SCENARIO: AE30 printer advertises twice, stronger the second time → "+" line, "~" line, table with fresh RSSI

	closer := testutils.NewAdvertisementBuilder().
		WithAddress(TestPrinterAddress1).
		WithRSSI(-40).
		WithService16(0xae30).
		Build()
	suite.ExpectScan(suite.PrinterAdvertisement(), closer)

	output, err := suite.ExecuteCommand("scan", "--watch", "--all", "--duration", "100ms")
	suite.Require().NoError(err)

	testutils.NewTextAsserter(suite.T()).Assert(output, `
+ MX10 AA:BB:CC:DD:EE:01 -45 dBm AE30
~ MX10 AA:BB:CC:DD:EE:01 -40 dBm AE30
NAME  ADDRESS            RSSI     VARIANT  SERVICES
----  -------            ----     -------  --------
MX10  AA:BB:CC:DD:EE:01  -40 dBm  AE30     ae30
Found 1 printer(s)
`)
}

func (suite *ScanTestSuite) TestScanCmd_WatchRequiresTable() {
	_, err := suite.ExecuteCommand("scan", "--watch", "--format", "json")

	suite.Require().ErrorContains(err, "--watch requires table format")
	suite.Transport.AssertNotCalled(suite.T(), "Scan", mock.Anything, mock.Anything)
}

func (suite *ScanTestSuite) TestScanCmd_JSON() {
	second := testutils.NewAdvertisementBuilder().
		WithAddress(TestPrinterAddress2).
		WithName("GT01").
		WithRSSI(-70).
		WithService128("0000af30-0000-1000-8000-00805f9b34fb").
		Build()
	suite.Transport.On("Scan", mock.Anything, mock.Anything).
		Run(testutils.ReplayAdvertisements(false, suite.PrinterAdvertisement(), second)).
		Return(nil)

	output, err := suite.ExecuteCommand("scan", "--all", "--format", "json", "--duration", "100ms")
	suite.Require().NoError(err)

	testutils.NewJSONAsserter(suite.T()).Assert(output, `[
		{"address": "AA:BB:CC:DD:EE:01", "name": "MX10", "rssi": -45, "variant": {"name": "AE30"}},
		{"address": "AA:BB:CC:DD:EE:02", "name": "GT01", "rssi": -70, "variant": {"name": "AF30", "notify": "0000af02-0000-1000-8000-00805f9b34fb"}}
	]`)
}

func (suite *ScanTestSuite) TestScanCmd_NothingFound() {
	suite.ExpectScan()

	output, err := suite.ExecuteCommand("scan", "--duration", "50ms")

	suite.Require().NoError(err, "an empty scan MUST NOT be an error")
	suite.Contains(output, "No printers discovered")
}

func (suite *ScanTestSuite) TestScanCmd_NothingFoundJSON() {
	suite.ExpectScan()

	output, err := suite.ExecuteCommand("scan", "--duration", "50ms", "--format", "json")

	suite.Require().NoError(err)
	testutils.NewJSONAsserter(suite.T()).Assert(output, `[]`)
}

func (suite *ScanTestSuite) TestScanCmd_BluetoothOff() {
	suite.Transport.On("Scan", mock.Anything, mock.Anything).Return(device.ErrBluetoothOff)

	_, err := suite.ExecuteCommand("scan")

	suite.Require().ErrorIs(err, device.ErrBluetoothOff)
	suite.Contains(FormatUserError(err), "Bluetooth is turned off")
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "(unnamed)", displayName(""))
	assert.Equal(t, "MX10", displayName("MX10"))

	long := strings.Repeat("打", 21)
	short := displayName(long)
	assert.True(t, utf8.ValidString(short), "truncation MUST NOT split a multi-byte rune")
	assert.Equal(t, strings.Repeat("打", 17)+"...", short)
}

func TestScanTestSuite(t *testing.T) {
	suitelib.Run(t, new(ScanTestSuite))
}
