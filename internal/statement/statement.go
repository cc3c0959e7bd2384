// Package statement renders payout remittance advice as PDF.
package statement

import (
	"context"
	"fmt"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	payoutdomain "github.com/smallbiznis/revenueshare/internal/payout/domain"
	sharedomain "github.com/smallbiznis/revenueshare/internal/revenueshare/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Document is a rendered statement ready to be served.
type Document struct {
	Filename string
	Content  []byte
}

type Renderer interface {
	Render(ctx context.Context, payoutID string) (*Document, error)
}

type Params struct {
	fx.In

	Log     *zap.Logger
	Payouts payoutdomain.Service
	Shares  sharedomain.Service
}

type Service struct {
	log     *zap.Logger
	payouts payoutdomain.Service
	shares  sharedomain.Service
	printer *message.Printer
}

func New(p Params) Renderer {
	return &Service{
		log:     p.Log.Named("statement.service"),
		payouts: p.Payouts,
		shares:  p.Shares,
		printer: message.NewPrinter(language.Indonesian),
	}
}

func (s *Service) Render(ctx context.Context, payoutID string) (*Document, error) {
	detail, err := s.payouts.Get(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	payout := detail.Payout

	shares, err := s.shares.ListByPayout(ctx, payout.ID)
	if err != nil {
		return nil, err
	}

	content, err := s.build(payout, shares)
	if err != nil {
		s.log.Error("statement.render.failed", zap.String("payout_id", payout.ID.String()), zap.Error(err))
		return nil, err
	}

	s.log.Info("statement.rendered",
		zap.String("payout_id", payout.ID.String()),
		zap.String("provider_id", payout.ProviderID),
		zap.Int("shares", len(shares)),
	)

	return &Document{
		Filename: fmt.Sprintf("payout-%s-%s-%d.pdf", payout.ProviderID, payout.MonthYear, payout.Sequence),
		Content:  content,
	}, nil
}

func (s *Service) build(payout payoutdomain.Payout, shares []sharedomain.RevenueShare) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, "Remittance advice", props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	completed := "-"
	if payout.CompletedAt != nil {
		completed = payout.CompletedAt.UTC().Format(time.DateOnly)
	}
	m.AddRow(24,
		col.New(6).Add(
			text.New("Provider: "+payout.ProviderID, props.Text{Top: 0}),
			text.New("Period: "+payout.MonthYear.String(), props.Text{Top: 5}),
			text.New(fmt.Sprintf("Payout: %s (#%d)", payout.ID, payout.Sequence), props.Text{Top: 10}),
			text.New("Status: "+string(payout.Status), props.Text{Top: 15}),
		),
		col.New(6).Add(
			text.New("Completed: "+completed, props.Text{Top: 0, Align: align.Right}),
			text.New("Reference: "+orDash(payout.TransactionRef), props.Text{Top: 5, Align: align.Right}),
			text.New("Method: "+orDash(payout.PaymentMethod), props.Text{Top: 10, Align: align.Right}),
			text.New("Account: "+orDash(payout.BankAccount), props.Text{Top: 15, Align: align.Right}),
		),
	)

	m.AddRow(14,
		text.NewCol(12, "Total due "+s.amount(payout.TotalDue), props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   4,
		}),
	)

	header := props.Text{Style: fontstyle.Bold, Size: 9}
	right := props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}
	m.AddRow(8,
		text.NewCol(4, "Transaction", header),
		text.NewCol(2, "Package", header),
		text.NewCol(2, "Date", header),
		text.NewCol(2, "Weight", right),
		text.NewCol(2, "Share", right),
	)
	m.AddRow(2, line.NewCol(12))

	cell := props.Text{Size: 8}
	cellRight := props.Text{Size: 8, Align: align.Right}
	var sum int64
	for _, sh := range shares {
		m.AddRow(6,
			text.NewCol(4, sh.TransactionID, cell),
			text.NewCol(2, string(sh.PackageType), cell),
			text.NewCol(2, sh.CalculatedAt.UTC().Format(time.DateOnly), cell),
			text.NewCol(2, fmt.Sprintf("%d/%d", sh.WeightNumerator, sh.WeightDenominator), cellRight),
			text.NewCol(2, s.amount(sh.ProviderShare), cellRight),
		)
		sum += sh.ProviderShare
	}

	m.AddRow(2, line.NewCol(12))
	m.AddRow(8,
		col.New(6),
		text.NewCol(4, fmt.Sprintf("%d shares", len(shares)), props.Text{Size: 9}),
		text.NewCol(2, s.amount(sum), props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

// amount formats minor units with locale digit grouping.
func (s *Service) amount(v int64) string {
	return s.printer.Sprintf("%d", v)
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
