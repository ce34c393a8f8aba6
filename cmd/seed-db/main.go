// Command seed-db loads demo users and orders into the database. Orders are
// created through the order service so they get the same identifiers,
// defaults and transactional guarantees as live traffic.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/shop-order-service/internal/domain/order"
	"github.com/xenking/shop-order-service/internal/storage/postgres"
)

type userJSON struct {
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type optionJSON struct {
	OptionIdx int64           `json:"optionIdx"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type supplyJSON struct {
	SupplyIdx int64           `json:"supplyIdx"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type itemJSON struct {
	ItemIdx  int64  `json:"itemIdx"`
	ItemName string `json:"itemName"`
	Quantity int    `json:"quantity"`

	SalePrice   decimal.Decimal `json:"salePrice"`
	OptionPrice decimal.Decimal `json:"optionPrice"`
	SupplyPrice decimal.Decimal `json:"supplyPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	Status      string          `json:"status"`

	Options  []optionJSON `json:"options"`
	Supplies []supplyJSON `json:"supplies"`
}

type orderJSON struct {
	OrdNo     string `json:"ordNo"`
	ShopIdx   int64  `json:"shopIdx"`
	SellerIdx int64  `json:"sellerIdx"`
	// UserIdx references the seed users by insertion order: the users
	// array is seeded first into an empty database, so the first user
	// gets idx 1, the second idx 2, and so on.
	UserIdx int64 `json:"userIdx"`

	BasicPrice    decimal.Decimal `json:"basicPrice"`
	OptionPrice   decimal.Decimal `json:"optionPrice"`
	DeliveryPrice decimal.Decimal `json:"deliveryPrice"`
	BoxDC         decimal.Decimal `json:"boxDc"`
	PayPrice      decimal.Decimal `json:"payPrice"`

	BuyerName  string `json:"buyerName"`
	BuyerEmail string `json:"buyerEmail"`
	BuyerPhone string `json:"buyerPhone"`
	BuyerZip   string `json:"buyerZip"`
	BuyerAddr1 string `json:"buyerAddr1"`

	ReceiverName  string `json:"receiverName"`
	ReceiverPhone string `json:"receiverPhone"`
	ReceiverZip   string `json:"receiverZip"`
	ReceiverAddr1 string `json:"receiverAddr1"`

	PayerName string `json:"payerName"`
	PayMethod string `json:"payMethod"`

	Items []itemJSON `json:"orderItems"`
}

type seedFile struct {
	Users  []userJSON  `json:"users"`
	Orders []orderJSON `json:"orders"`
}

func main() {
	var (
		databaseURL string
		seedPath    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedPath, "seed-file", "db/seed/orders.json", "path to seed JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, seedPath); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, seedPath string) error {
	slog.Info("reading seed file", slog.String("path", seedPath))

	data, err := os.ReadFile(seedPath)
	if err != nil {
		return errors.Wrap(err, "read seed file")
	}

	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return errors.Wrap(err, "parse seed JSON")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedUsers(ctx, pool, seed.Users); err != nil {
		return errors.Wrap(err, "seed users")
	}

	if err := seedOrders(ctx, pool, seed.Orders); err != nil {
		return errors.Wrap(err, "seed orders")
	}

	return nil
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool, users []userJSON) error {
	for _, u := range users {
		_, err := pool.Exec(ctx, `
			INSERT INTO users (uid, name, email, phone)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (uid) DO NOTHING`,
			u.UID, u.Name, u.Email, u.Phone)
		if err != nil {
			return errors.Wrapf(err, "insert user %s", u.UID)
		}
	}

	slog.Info("users seeded", slog.Int("count", len(users)))
	return nil
}

func seedOrders(ctx context.Context, pool *pgxpool.Pool, orders []orderJSON) error {
	svc := order.NewService(postgres.NewOrderRepository(pool))

	for i, o := range orders {
		created, err := svc.Create(ctx, toCreateInput(o))
		if err != nil {
			return errors.Wrapf(err, "create order %s", o.OrdNo)
		}

		slog.Info("order seeded",
			slog.Int("n", i+1),
			slog.String("uid", created.UID),
			slog.String("ordNo", created.OrdNo),
		)
	}

	return nil
}

func toCreateInput(o orderJSON) order.CreateInput {
	in := order.CreateInput{
		OrdNo:     o.OrdNo,
		ShopIdx:   o.ShopIdx,
		SellerIdx: o.SellerIdx,
		UserIdx:   o.UserIdx,

		BasicPrice:    o.BasicPrice,
		OptionPrice:   o.OptionPrice,
		DeliveryPrice: o.DeliveryPrice,
		BoxDC:         o.BoxDC,
		PayPrice:      o.PayPrice,

		BuyerName:  o.BuyerName,
		BuyerEmail: o.BuyerEmail,
		BuyerPhone: o.BuyerPhone,
		BuyerZip:   o.BuyerZip,
		BuyerAddr1: o.BuyerAddr1,

		ReceiverName:  o.ReceiverName,
		ReceiverPhone: o.ReceiverPhone,
		ReceiverZip:   o.ReceiverZip,
		ReceiverAddr1: o.ReceiverAddr1,

		PayerName: o.PayerName,
		PayMethod: o.PayMethod,
	}

	for _, it := range o.Items {
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
