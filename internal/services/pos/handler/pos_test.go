package handler

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"barbershop-system/internal/commission"
	"barbershop-system/internal/database/models"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testCatalog() (map[uuid.UUID]models.CatalogItem, uuid.UUID, uuid.UUID) {
	cut := models.CatalogItem{ID: uuid.New(), Category: "service", Name: "Haircut", Price: dec("50"), IsActive: true}
	pomade := models.CatalogItem{ID: uuid.New(), Category: "product", Name: "Pomade", Price: dec("35.90"), IsActive: true}
	return map[uuid.UUID]models.CatalogItem{cut.ID: cut, pomade.ID: pomade}, cut.ID, pomade.ID
}

func TestBuildSale(t *testing.T) {
	catalog, cut, pomade := testCatalog()
	staffID := uuid.New()

	sale, err := buildSale(uuid.New(), uuid.New(), CreateSaleRequest{
		StaffID:  staffID.String(),
		Discount: "10",
		Items: []CreateSaleItem{
			{ItemID: cut.String(), Quantity: 2, Discount: "5"},
			{ItemID: pomade.String(), Quantity: 1, UnitPrice: "30"},
		},
	}, catalog)
	if err != nil {
		t.Fatalf("buildSale: %v", err)
	}

	if sale.Status != string(commission.StatusAwaiting) || sale.StaffID != staffID {
		t.Fatalf("unexpected sale header %+v", sale)
	}
	if len(sale.Items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(sale.Items))
	}
	if !sale.Items[0].Subtotal.Equal(dec("95")) || sale.Items[0].Category != "service" {
		t.Fatalf("service line = %+v", sale.Items[0])
	}
	if !sale.Items[1].Subtotal.Equal(dec("30")) || !sale.Items[1].UnitPrice.Equal(dec("30")) {
		t.Fatalf("product line = %+v", sale.Items[1])
	}
	if !sale.Subtotal.Equal(dec("125")) || !sale.Total.Equal(dec("115")) {
		t.Fatalf("subtotal %s total %s", sale.Subtotal, sale.Total)
	}
	for _, it := range sale.Items {
		if it.SaleID != sale.ID {
			t.Fatal("lines must reference their sale")
		}
	}

	rec := commission.ReconcileSale(sale.ToCommission(), commission.DefaultEpsilon)
	if !rec.Balanced {
		t.Fatalf("freshly built sale must reconcile: %+v", rec)
	}
}

func TestBuildSale_DiscountAlreadyInSubtotals(t *testing.T) {
	catalog, cut, _ := testCatalog()
	sale, err := buildSale(uuid.New(), uuid.New(), CreateSaleRequest{
		StaffID:             uuid.NewString(),
		Discount:            "10",
		DiscountInSubtotals: true,
		Items:               []CreateSaleItem{{ItemID: cut.String(), Quantity: 1, Discount: "10"}},
	}, catalog)
	if err != nil {
		t.Fatalf("buildSale: %v", err)
	}
	if !sale.Total.Equal(dec("40")) {
		t.Fatalf("total = %s, want 40", sale.Total)
	}
	if !commission.ReconcileSale(sale.ToCommission(), commission.DefaultEpsilon).Balanced {
		t.Fatal("sale must reconcile when the discount is already in subtotals")
	}
}

func TestBuildSale_Rejects(t *testing.T) {
	catalog, cut, _ := testCatalog()
	inactive := models.CatalogItem{ID: uuid.New(), Category: "service", Name: "Old", Price: dec("1")}
	catalog[inactive.ID] = inactive

	cases := []struct {
		name string
		req  CreateSaleRequest
		code codes.Code
	}{
		{"unknown item", CreateSaleRequest{Items: []CreateSaleItem{{ItemID: uuid.NewString(), Quantity: 1}}}, codes.NotFound},
		{"inactive item", CreateSaleRequest{Items: []CreateSaleItem{{ItemID: inactive.ID.String(), Quantity: 1}}}, codes.FailedPrecondition},
		{"line discount too big", CreateSaleRequest{Items: []CreateSaleItem{{ItemID: cut.String(), Quantity: 1, Discount: "60"}}}, codes.InvalidArgument},
		{"venue discount too big", CreateSaleRequest{Discount: "51", Items: []CreateSaleItem{{ItemID: cut.String(), Quantity: 1}}}, codes.InvalidArgument},
		{"negative discount", CreateSaleRequest{Discount: "-1", Items: []CreateSaleItem{{ItemID: cut.String(), Quantity: 1}}}, codes.InvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.req.StaffID = uuid.NewString()
			_, err := buildSale(uuid.New(), uuid.New(), tc.req, catalog)
			if status.Code(err) != tc.code {
				t.Fatalf("code = %v, want %v (%v)", status.Code(err), tc.code, err)
			}
		})
	}
}

func TestSettlePayment(t *testing.T) {
	paid, remaining, err := settlePayment(dec("100"), "")
	if err != nil || !paid.Equal(dec("100")) || !remaining.IsZero() {
		t.Fatalf("full payment = %s/%s/%v", paid, remaining, err)
	}

	paid, remaining, err = settlePayment(dec("100"), "60")
	if err != nil || !paid.Equal(dec("60")) || !remaining.Equal(dec("40")) {
		t.Fatalf("partial payment = %s/%s/%v", paid, remaining, err)
	}

	for _, bad := range []string{"100.01", "0", "-5", "x"} {
		if _, _, err := settlePayment(dec("100"), bad); status.Code(err) != codes.InvalidArgument {
			t.Fatalf("%q: expected InvalidArgument, got %v", bad, err)
		}
	}

	if _, remaining, err := settlePayment(decimal.Zero, "0"); err != nil || !remaining.IsZero() {
		t.Fatalf("zero total sale must be payable, got %v", err)
	}
}
