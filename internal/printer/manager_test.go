package printer

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/srg/catprint/internal/escpos"
	"github.com/srg/catprint/internal/testutils"
	"github.com/stretchr/testify/mock"
	suitelib "github.com/stretchr/testify/suite"
)

type fakeDiscoverer struct {
	found []Discovery
	err   error
	calls int
}

func (f *fakeDiscoverer) Discover(context.Context) ([]Discovery, error) {
	f.calls++
	return f.found, f.err
}

type ManagerTestSuite struct {
	linkSuite
}

func (suite *ManagerTestSuite) manager(d Discoverer, opts ManagerOptions) *Manager {
	return NewManager(suite.transport, d, opts, suite.helper.Logger)
}

func (suite *ManagerTestSuite) TestScanWithoutDiscoverer() {
	_, err := suite.manager(nil, ManagerOptions{}).Scan(context.Background())

	suite.ErrorIs(err, ErrNotInitialized)
}

func (suite *ManagerTestSuite) TestConnectUnknownAddress() {
	m := suite.manager(&fakeDiscoverer{}, ManagerOptions{})

	err := m.Connect(context.Background(), testAddress)

	suite.ErrorIs(err, ErrNoMatchingDevice)
	suite.transport.AssertNotCalled(suite.T(), "Dial", mock.Anything, mock.Anything)
}

func (suite *ManagerTestSuite) TestConnectUsesScannedVariant() {
	// GOAL: Verify Connect binds the variant the scan saw, matching the address case-insensitively
	//
	// TEST SCENARIO: Scan reports an AF30 printer in lower case → Connect with upper case → subscribed over af01/af02

	link, _, notify := testutils.NewPrinterLink(testAddress, VariantAF30.Service, VariantAF30.Write, VariantAF30.Notify)
	suite.expectDial(link)
	d := &fakeDiscoverer{found: []Discovery{{Address: "aa:bb:cc:dd:ee:ff", Name: "GT01", Variant: VariantAF30}}}
	m := suite.manager(d, ManagerOptions{})

	found, err := m.Scan(context.Background())
	suite.Require().NoError(err)
	suite.Len(found, 1)

	suite.Require().NoError(m.Connect(context.Background(), testAddress))

	suite.Equal(StateSubscribed, m.Session().State())
	v, _ := m.Session().Variant()
	suite.Equal(VariantAF30, v)
	suite.True(notify.Subscribed())
}

func (suite *ManagerTestSuite) TestConnectFallsBackToConfiguredVariant() {
	suite.expectDial(suite.link)
	v := VariantAE30
	m := suite.manager(nil, ManagerOptions{Variant: &v, ConnectTimeout: time.Second})

	suite.Require().NoError(m.Connect(context.Background(), testAddress))

	suite.Equal(StateSubscribed, m.Session().State())
}

func (suite *ManagerTestSuite) TestSubscribeFailureDisconnects() {
	suite.notify.SubscribeErr = errors.New("notify refused")
	suite.expectDial(suite.link)
	v := VariantAE30
	m := suite.manager(nil, ManagerOptions{Variant: &v})

	err := m.Connect(context.Background(), testAddress)

	suite.ErrorIs(err, ErrSubscriptionFailed)
	suite.Equal(StateDisconnected, m.Session().State())
	suite.Equal(1, suite.link.Closed())
}

func (suite *ManagerTestSuite) TestPrintTextRoundTrip() {
	suite.expectDial(suite.link)
	v := VariantAE30
	m := suite.manager(nil, ManagerOptions{Variant: &v, Job: JobOptions{AckTimeout: time.Second}})
	suite.Require().NoError(m.Connect(context.Background(), testAddress))

	suite.write.OnWrite = func([]byte) {
		time.AfterFunc(10*time.Millisecond, func() { suite.notify.Notify(ReadySentinel) })
	}

	suite.NoError(m.PrintText(context.Background(), "hi", escpos.TextStyle{}))
	suite.Equal([]byte("hi\n"), suite.write.Written())

	suite.NoError(m.Disconnect())
	suite.Equal(StateDisconnected, m.Session().State())
	suite.ErrorIs(m.PrintText(context.Background(), "again", escpos.TextStyle{}), ErrNotReady)
}

func (suite *ManagerTestSuite) TestPrintImageUsesPackOptions() {
	suite.expectDial(suite.link)
	v := VariantAE30
	m := suite.manager(nil, ManagerOptions{
		Variant: &v,
		Job:     JobOptions{AckTimeout: time.Second},
		Pack:    escpos.PackOptions{InvertInk: true},
	})
	suite.Require().NoError(m.Connect(context.Background(), testAddress))
	suite.write.OnWrite = func([]byte) { suite.notify.Notify(ReadySentinel) }

	// one white row of 8 pixels: inverted ink leaves every bit clear
	img := image.NewGray(image.Rect(0, 0, 8, 1))
	for x := 0; x < 8; x++ {
		img.SetGray(x, 0, color.Gray{Y: 0xff})
	}

	suite.Require().NoError(m.PrintImage(context.Background(), img))
	suite.Equal([]byte{0x1d, 0x76, 0x30, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00}, suite.write.Written())
}

func TestManagerTestSuite(t *testing.T) {
	suitelib.Run(t, new(ManagerTestSuite))
}
