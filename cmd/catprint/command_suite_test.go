package main

import (
	"bytes"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/srg/catprint/internal/device"
	"github.com/srg/catprint/internal/printer"
	"github.com/srg/catprint/internal/testutils"
	"github.com/stretchr/testify/mock"
	suitelib "github.com/stretchr/testify/suite"
)

// Test printer addresses for consistent mock device identification
const (
	TestPrinterAddress1 = "AA:BB:CC:DD:EE:01"
	TestPrinterAddress2 = "AA:BB:CC:DD:EE:02"
)

// CommandTestSuite swaps the BLE transport for a mock and runs commands in-process.
// All cmd/catprint test suites embed it.
type CommandTestSuite struct {
	suitelib.Suite

	Transport *testutils.MockTransport
	Link      *testutils.FakeLink
	Write     *testutils.FakeCharacteristic
	Notify    *testutils.FakeCharacteristic

	originalTransport func(*logrus.Logger) device.Transport
	originalNoColor   bool
}

func (s *CommandTestSuite) SetupSuite() {
	s.originalTransport = newTransport
	s.originalNoColor = color.NoColor
	color.NoColor = true
}

func (s *CommandTestSuite) TearDownSuite() {
	newTransport = s.originalTransport
	color.NoColor = s.originalNoColor
}

func (s *CommandTestSuite) SetupTest() {
	s.Transport = &testutils.MockTransport{}
	newTransport = func(*logrus.Logger) device.Transport { return s.Transport }
	s.Link, s.Write, s.Notify = testutils.NewPrinterLink(TestPrinterAddress1,
		printer.VariantAE30.Service, printer.VariantAE30.Write, printer.VariantAE30.Notify)
}

// ExpectScan makes Scan replay ads and then wait for the scan window to close.
func (s *CommandTestSuite) ExpectScan(ads ...device.Advertisement) {
	s.Transport.On("Scan", mock.Anything, mock.Anything).
		Run(testutils.ReplayAdvertisements(true, ads...)).
		Return(nil)
}

// ExpectPrinter lets Dial reach the fake printer, which answers every write with the ready sentinel.
func (s *CommandTestSuite) ExpectPrinter() {
	s.Transport.On("Dial", mock.Anything, TestPrinterAddress1).Return(s.Link, nil)
	s.Write.OnWrite = func([]byte) { s.Notify.Notify(printer.ReadySentinel) }
}

// PrinterAdvertisement is an AE30 printer advertising under TestPrinterAddress1.
func (s *CommandTestSuite) PrinterAdvertisement() device.Advertisement {
	return testutils.NewAdvertisementBuilder().
		WithAddress(TestPrinterAddress1).
		WithName("MX10").
		WithRSSI(-45).
		WithService16(0xae30).
		Build()
}

// ExecuteCommand runs the root command with args, returns combined output and error.
func (s *CommandTestSuite) ExecuteCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	cmd := newRootCmd()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
