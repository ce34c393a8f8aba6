// Command order-import bulk-loads orders from a gzip-compressed NDJSON file,
// one order document per line. Lines are fanned out to concurrent workers
// that create orders through the order service.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/shop-order-service/internal/domain/order"
	"github.com/xenking/shop-order-service/internal/storage/postgres"
)

const (
	// maxLineSize bounds a single NDJSON document: an order with many items.
	maxLineSize   = 1 << 20
	progressEvery = 1000
)

type optionLine struct {
	OptionIdx int64           `json:"optionIdx"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type supplyLine struct {
	SupplyIdx int64           `json:"supplyIdx"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type itemLine struct {
	ItemIdx  int64  `json:"itemIdx"`
	ItemName string `json:"itemName"`
	Quantity int    `json:"quantity"`

	SalePrice   decimal.Decimal `json:"salePrice"`
	OptionPrice decimal.Decimal `json:"optionPrice"`
	SupplyPrice decimal.Decimal `json:"supplyPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	Status      string          `json:"status"`

	Options  []optionLine `json:"options"`
	Supplies []supplyLine `json:"supplies"`
}

type orderLine struct {
	OrdNo     string `json:"ordNo"`
	ShopIdx   int64  `json:"shopIdx"`
	SellerIdx int64  `json:"sellerIdx"`
	UserIdx   int64  `json:"userIdx"`

	BasicPrice    decimal.Decimal `json:"basicPrice"`
	OptionPrice   decimal.Decimal `json:"optionPrice"`
	DeliveryPrice decimal.Decimal `json:"deliveryPrice"`
	BoxDC         decimal.Decimal `json:"boxDc"`
	PayPrice      decimal.Decimal `json:"payPrice"`
	Memo          string          `json:"memo"`

	BuyerName  string `json:"buyerName"`
	BuyerEmail string `json:"buyerEmail"`
	BuyerPhone string `json:"buyerPhone"`
	BuyerZip   string `json:"buyerZip"`
	BuyerAddr1 string `json:"buyerAddr1"`
	BuyerAddr2 string `json:"buyerAddr2"`

	ReceiverName  string `json:"receiverName"`
	ReceiverPhone string `json:"receiverPhone"`
	ReceiverZip   string `json:"receiverZip"`
	ReceiverAddr1 string `json:"receiverAddr1"`
	ReceiverAddr2 string `json:"receiverAddr2"`

	PayerName string `json:"payerName"`
	PayMethod string `json:"payMethod"`

	Items []itemLine `json:"orderItems"`
}

func main() {
	var (
		filePath    string
		databaseURL string
		workers     int
	)

	flag.StringVar(&filePath, "file", "orders.ndjson.gz", "path to gzipped NDJSON orders file")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&workers, "workers", 4, "number of concurrent import workers")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if workers < 1 {
		workers = 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, filePath, databaseURL, workers); err != nil {
		slog.Error("order import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("order import completed successfully")
}

func run(ctx context.Context, filePath, databaseURL string, workers int) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	svc := order.NewService(postgres.NewOrderRepository(pool))

	lines := make(chan []byte, workers*2)
	var imported atomic.Int64

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(lines)
		return streamLines(gctx, filePath, lines)
	})

	for range workers {
		g.Go(func() error {
			for line := range lines {
				var doc orderLine
				if err := json.Unmarshal(line, &doc); err != nil {
					return errors.Wrap(err, "parse order document")
				}

				if _, err := svc.Create(gctx, toCreateInput(doc)); err != nil {
					return errors.Wrapf(err, "create order %q", doc.OrdNo)
				}

				if n := imported.Add(1); n%progressEvery == 0 {
					slog.Info("import progress", slog.Int64("orders", n))
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("import finished", slog.Int64("orders", imported.Load()))
	return nil
}

// streamLines reads the gzip-compressed file and sends one copied line per
// order document. Blank lines are skipped.
func streamLines(ctx context.Context, path string, out chan<- []byte) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		// The scanner reuses its buffer between lines.
		line := make([]byte, len(raw))
		copy(line, raw)

		select {
		case out <- line:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return errors.Wrapf(scanner.Err(), "scan %s", path)
}

func toCreateInput(doc orderLine) order.CreateInput {
	in := order.CreateInput{
		OrdNo:     doc.OrdNo,
		ShopIdx:   doc.ShopIdx,
		SellerIdx: doc.SellerIdx,
		UserIdx:   doc.UserIdx,

		BasicPrice:    doc.BasicPrice,
		OptionPrice:   doc.OptionPrice,
		DeliveryPrice: doc.DeliveryPrice,
		BoxDC:         doc.BoxDC,
		PayPrice:      doc.PayPrice,
		Memo:          doc.Memo,

		BuyerName:  doc.BuyerName,
		BuyerEmail: doc.BuyerEmail,
		BuyerPhone: doc.BuyerPhone,
		BuyerZip:   doc.BuyerZip,
		BuyerAddr1: doc.BuyerAddr1,
		BuyerAddr2: doc.BuyerAddr2,

		ReceiverName:  doc.ReceiverName,
		ReceiverPhone: doc.ReceiverPhone,
		ReceiverZip:   doc.ReceiverZip,
		ReceiverAddr1: doc.ReceiverAddr1,
		ReceiverAddr2: doc.ReceiverAddr2,

		PayerName: doc.PayerName,
		PayMethod: doc.PayMethod,
	}

	for _, it := range doc.Items {
		change := order.ItemChange{
			ItemIdx:     it.ItemIdx,
			ItemName:    it.ItemName,
			Quantity:    it.Quantity,
			SalePrice:   it.SalePrice,
			OptionPrice: it.OptionPrice,
			SupplyPrice: it.SupplyPrice,
			TotalPrice:  it.TotalPrice,
			Status:      it.Status,
		}
		for _, op := range it.Options {
			change.Options = append(change.Options, order.Option{
				OptionIdx: op.OptionIdx,
				Name:      op.Name,
				Price:     op.Price,
				Quantity:  op.Quantity,
			})
		}
		for _, sp := range it.Supplies {
			change.Supplies = append(change.Supplies, order.Supply{
				SupplyIdx: sp.SupplyIdx,
				Name:      sp.Name,
				Price:     sp.Price,
				Quantity:  sp.Quantity,
			})
		}
		in.Items = append(in.Items, change)
	}

	return in
}
