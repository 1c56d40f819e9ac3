//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/richxcame/upi-guard/internal/checks"
	"github.com/richxcame/upi-guard/internal/fraud"
	"github.com/richxcame/upi-guard/internal/reports"
	"github.com/richxcame/upi-guard/internal/transactions"
	"github.com/richxcame/upi-guard/pkg/common"
	"github.com/richxcame/upi-guard/pkg/config"
	"github.com/richxcame/upi-guard/pkg/database"
)

// StoreTestSuite runs the services against a real PostgreSQL configured
// through the DB_* environment variables.
type StoreTestSuite struct {
	suite.Suite
	pool *pgxpool.Pool

	checks       *checks.Service
	reports      *reports.Service
	transactions *transactions.Service
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) SetupSuite() {
	cfg, err := config.Load("integration")
	s.Require().NoError(err)
	s.Require().NoError(database.Migrate(&cfg.Database))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.pool, err = database.NewPostgresPool(ctx, &cfg.Database)
	s.Require().NoError(err)

	s.transactions = transactions.NewService(transactions.NewRepository(s.pool), nil)
	s.reports = reports.NewService(reports.NewRepository(s.pool), nil, nil)
	s.checks = checks.NewService(checks.NewRepository(s.pool), nil, nil)
	s.checks.SetDetailSources(s.transactions, s.reports)
}

func (s *StoreTestSuite) TearDownSuite() {
	if s.pool != nil {
		database.Close(s.pool)
	}
}

func (s *StoreTestSuite) SetupTest() {
	_, err := s.pool.Exec(context.Background(), `TRUNCATE upi_checks, upi_reports, upi_transactions`)
	s.Require().NoError(err)
}

func (s *StoreTestSuite) TestCheckRoundTrip() {
	ctx := context.Background()

	res, err := s.checks.CheckUPI(ctx, "  bob@support-paytm ")
	s.Require().NoError(err)
	s.NotEqual(uuid.Nil, res.Check.ID)
	s.Equal("bob@support-paytm", res.Check.UPIID)
	s.Equal(fraud.StatusSuspicious, res.Verdict.Status())

	got, err := s.checks.GetCheck(ctx, res.Check.ID)
	s.Require().NoError(err)
	s.Equal(res.Check.Reasons, got.Reasons)
	s.Require().NotNil(got.Domain)
	s.Equal("support-paytm", *got.Domain)
	s.WithinDuration(res.Check.CheckedAt, got.CheckedAt, time.Millisecond)
}

func (s *StoreTestSuite) TestCreateRepeatedID() {
	ctx := context.Background()

	checkRepo := checks.NewRepository(s.pool)
	check := &checks.Check{ID: uuid.New(), UPIID: "alice@paytm", Status: "safe", Reasons: []string{}}
	s.Require().NoError(checkRepo.Create(ctx, check))
	first := check.CheckedAt
	s.Require().NoError(checkRepo.Create(ctx, check))
	s.True(first.Equal(check.CheckedAt))

	reportRepo := reports.NewRepository(s.pool)
	report := &reports.Report{ID: uuid.New(), UPIID: "scam@ybl", Reason: "fake refund"}
	s.Require().NoError(reportRepo.Create(ctx, report))
	s.Require().NoError(reportRepo.Create(ctx, report))

	var nChecks, nReports int
	s.Require().NoError(s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM upi_checks WHERE id = $1`, check.ID).Scan(&nChecks))
	s.Require().NoError(s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM upi_reports WHERE id = $1`, report.ID).Scan(&nReports))
	s.Equal(1, nChecks)
	s.Equal(1, nReports)
}

func (s *StoreTestSuite) TestGetCheck_NotFound() {
	_, err := s.checks.GetCheck(context.Background(), uuid.New())
	s.Require().Error(err)

	appErr, ok := err.(*common.AppError)
	s.Require().True(ok)
	s.Equal(404, appErr.Code)
}

func (s *StoreTestSuite) TestRecentAndPaging() {
	ctx := context.Background()
	for _, id := range []string{"first@paytm", "second@ybl", "third@okaxis"} {
		_, err := s.checks.CheckUPI(ctx, id)
		s.Require().NoError(err)
	}

	recent, err := s.checks.GetRecentChecks(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Equal("third@okaxis", recent[0].UPIID)
	s.Equal("second@ybl", recent[1].UPIID)

	page, total, err := s.checks.ListChecks(ctx, 2, 2)
	s.Require().NoError(err)
	s.EqualValues(3, total)
	s.Require().Len(page, 1)
	s.Equal("first@paytm", page[0].UPIID)
}

func (s *StoreTestSuite) TestReportsLifecycle() {
	ctx := context.Background()

	report, err := s.reports.SubmitReport(ctx, reports.SubmitReportRequest{
		UPIID:  "bob@support-paytm",
		Reason: "asked for my PIN",
	})
	s.Require().NoError(err)
	s.Nil(report.ReporterEmail)

	byUPI, err := s.reports.ListReportsForUPI(ctx, "bob@support-paytm")
	s.Require().NoError(err)
	s.Require().Len(byUPI, 1)
	s.Equal("asked for my PIN", byUPI[0].Reason)

	s.Require().NoError(s.reports.DeleteReport(ctx, report.ID, "admin"))
	s.Error(s.reports.DeleteReport(ctx, report.ID, "admin"))

	recent, err := s.reports.ListRecentReports(ctx, 0)
	s.Require().NoError(err)
	s.Empty(recent)
}

func (s *StoreTestSuite) TestCheckDetails() {
	ctx := context.Background()
	t := s.T()

	insertTransaction(t, s.pool, "shop@paytm", 250.50, "success", time.Now().Add(-2*time.Hour))
	insertTransaction(t, s.pool, "shop@paytm", 99, "failed", time.Now().Add(-5*time.Minute))
	insertTransaction(t, s.pool, "other@paytm", 10, "success", time.Now())

	_, err := s.reports.SubmitReport(ctx, reports.SubmitReportRequest{UPIID: "shop@paytm", Reason: "never shipped"})
	s.Require().NoError(err)

	res, err := s.checks.CheckUPI(ctx, "shop@paytm")
	s.Require().NoError(err)

	details, err := s.checks.GetCheckDetails(ctx, res.Check.ID)
	s.Require().NoError(err)
	s.Require().Len(details.Transactions, 2)
	s.Equal(99.0, details.Transactions[0].Amount)
	s.Equal("5 minutes ago", details.Transactions[0].TimeAgo)
	s.Equal(250.5, details.Transactions[1].Amount)
	s.Len(details.Reports, 1)
}

func insertTransaction(t *testing.T, pool *pgxpool.Pool, upiID string, amount float64, status string, at time.Time) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO upi_transactions (upi_id, amount, status, transaction_date) VALUES ($1, $2, $3, $4)`,
		upiID, amount, status, at,
	)
	require.NoError(t, err)
}
