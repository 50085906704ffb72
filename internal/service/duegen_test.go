package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rentwise/rentd/internal/calendar"
	"github.com/rentwise/rentd/internal/domain/contract"
	"github.com/rentwise/rentd/internal/domain/due"
)

func newTestGenerator() (*DueGenerator, *mockDueStore) {
	dues := &mockDueStore{}
	return NewDueGenerator(dues, slog.New(slog.DiscardHandler)), dues
}

func yearContract(dayOfMonth int) *contract.Contract {
	return &contract.Contract{
		ID:          "c-1",
		FlatID:      "flat-1",
		StartDate:   calendar.DateUTC(2024, time.January, 1),
		EndDate:     calendar.DateUTC(2024, time.December, 31),
		MonthlyRent: decimal.NewFromInt(1000),
		DayOfMonth:  dayOfMonth,
		Status:      contract.StatusActive,
	}
}

func TestGenerateFullYear(t *testing.T) {
	gen, _ := newTestGenerator()
	c := yearContract(15)

	created, err := gen.Generate(context.Background(), c, c.StartDate)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(created) != 12 {
		t.Fatalf("created %d dues, want 12", len(created))
	}
	for _, d := range created {
		if d.DueDate.Day() != 15 {
			t.Errorf("due date %s, want day 15", d.DueDate.Format("2006-01-02"))
		}
		if d.Status != due.StatusUnpaid {
			t.Errorf("status = %s, want UNPAID", d.Status)
		}
	}
}

func TestGenerateClampsToShortMonths(t *testing.T) {
	gen, _ := newTestGenerator()
	c := yearContract(31)

	created, err := gen.Generate(context.Background(), c, c.StartDate)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(created) != 12 {
		t.Fatalf("created %d dues, want 12", len(created))
	}

	byMonth := map[time.Month]int{}
	for _, d := range created {
		byMonth[d.DueDate.Month()] = d.DueDate.Day()
	}
	// 2024 is a leap year.
	if byMonth[time.February] != 29 {
		t.Errorf("february due day = %d, want 29", byMonth[time.February])
	}
	if byMonth[time.April] != 30 {
		t.Errorf("april due day = %d, want 30", byMonth[time.April])
	}
	if byMonth[time.January] != 31 {
		t.Errorf("january due day = %d, want 31", byMonth[time.January])
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	gen, dues := newTestGenerator()
	c := yearContract(10)
	ctx := context.Background()

	if _, err := gen.Generate(ctx, c, c.StartDate); err != nil {
		t.Fatalf("first run: %v", err)
	}
	again, err := gen.Generate(ctx, c, c.StartDate)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second run created %d dues, want 0", len(again))
	}
	if len(dues.dues) != 12 {
		t.Errorf("store holds %d dues, want 12", len(dues.dues))
	}
}

func TestGenerateFillsGaps(t *testing.T) {
	gen, dues := newTestGenerator()
	c := yearContract(10)
	ctx := context.Background()

	// Pre-seed two months as if an earlier run was interrupted.
	for _, m := range []time.Month{time.January, time.February} {
		d := due.Due{
			FlatID: c.FlatID, ContractID: c.ID,
			DueDate: calendar.DateUTC(2024, m, 10),
			Amount:  decimal.NewFromInt(1000), Status: due.StatusUnpaid,
		}
		if err := dues.Create(ctx, &d); err != nil {
			t.Fatal(err)
		}
	}

	created, err := gen.Generate(ctx, c, c.StartDate)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(created) != 10 {
		t.Errorf("created %d dues, want 10 remaining months", len(created))
	}
}

func TestGenerateFromExtensionStart(t *testing.T) {
	gen, _ := newTestGenerator()
	c := yearContract(10)
	// Bill only the months from September onwards, as a renewal would.
	from := calendar.DateUTC(2024, time.September, 1)

	created, err := gen.Generate(context.Background(), c, from)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(created) != 4 {
		t.Fatalf("created %d dues, want 4 (Sep..Dec)", len(created))
	}
	if created[0].DueDate.Month() != time.September {
		t.Errorf("first due in %s, want September", created[0].DueDate.Month())
	}
}

func TestGenerateSkipsDueDatesOutsideRange(t *testing.T) {
	gen, _ := newTestGenerator()
	c := yearContract(5)
	// Start mid-month after the billing day: January 5 is before the start
	// and must not be billed.
	c.StartDate = calendar.DateUTC(2024, time.January, 20)

	created, err := gen.Generate(context.Background(), c, c.StartDate)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(created) != 11 {
		t.Fatalf("created %d dues, want 11 (Feb..Dec)", len(created))
	}
	if created[0].DueDate.Month() != time.February {
		t.Errorf("first due in %s, want February", created[0].DueDate.Month())
	}
}

func TestGenerateUsesFixedDueAmount(t *testing.T) {
	gen, _ := newTestGenerator()
	c := yearContract(10)
	fixed := decimal.NewFromInt(950)
	c.DueAmount = &fixed

	created, err := gen.Generate(context.Background(), c, c.StartDate)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, d := range created {
		if !d.Amount.Equal(fixed) {
			t.Errorf("amount = %s, want 950", d.Amount)
		}
	}
}
