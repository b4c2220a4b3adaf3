// Package receipt projects a booking into the printable cash receipt.
package receipt

import (
	"strings"
	"unicode"

	"PathLab/models"

	"github.com/shopspring/decimal"
)

const dateLayout = "02-Jan-2006 15:04"

type Line struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
	Discount string `json:"discount"`
	Net      string `json:"net"`
}

// Group holds the lines of one category in booking order.
type Group struct {
	Category string `json:"category"`
	Lines    []Line `json:"lines"`
	Subtotal string `json:"subtotal"`
}

type Patient struct {
	Name               string `json:"name"`
	Age                string `json:"age"`
	Gender             string `json:"gender"`
	Phone              string `json:"phone"`
	Address            string `json:"address"`
	RegistrationNumber string `json:"registrationNumber"`
}

type Payment struct {
	Total  string `json:"total"`
	Paid   string `json:"paid"`
	Due    string `json:"due"`
	Status string `json:"status"`
	Method string `json:"method"`
}

type View struct {
	LabName       string  `json:"labName"`
	LabAddress    string  `json:"labAddress"`
	LabPhone      string  `json:"labPhone"`
	ReceiptNumber int64   `json:"receiptNumber"`
	Date          string  `json:"date"`
	Patient       Patient `json:"patient"`
	Groups        []Group `json:"groups"`
	GrandTotal    string  `json:"grandTotal"`
	Payment       Payment `json:"payment"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// GenderInitial returns the upper-cased first letter of gender.
func GenderInitial(gender string) string {
	for _, r := range strings.TrimSpace(gender) {
		return string(unicode.ToUpper(r))
	}
	return ""
}

// Build groups booked tests by category, keeping the order in which each
// category first appears. It performs no I/O.
func Build(b *models.PathologyBooking, lab *models.Lab) View {
	v := View{
		ReceiptNumber: b.ReceiptNumber,
		Date:          b.CreatedAt.Format(dateLayout),
		Patient: Patient{
			Name:               b.Patient.Name,
			Age:                b.Patient.Age.String(),
			Gender:             GenderInitial(b.Patient.Gender),
			Phone:              b.Patient.Phone,
			Address:            b.Patient.Address.Format(),
			RegistrationNumber: b.Patient.RegistrationNumber,
		},
		Payment: Payment{
			Total:  money(b.Payment.TotalAmount),
			Paid:   money(b.Payment.PaidAmount),
			Due:    money(b.Payment.DueAmount),
			Status: string(b.Payment.Status),
			Method: b.Payment.Method,
		},
		Groups: []Group{},
	}
	if lab != nil {
		v.LabName = lab.Name
		v.LabAddress = lab.Address
		v.LabPhone = lab.Phone
	}

	index := map[string]int{}
	subtotals := []decimal.Decimal{}
	grand := decimal.Zero
	for _, t := range b.BookedTests {
		cat := strings.TrimSpace(t.Category)
		if cat == "" {
			cat = "General"
		}
		i, ok := index[cat]
		if !ok {
			i = len(v.Groups)
			index[cat] = i
			v.Groups = append(v.Groups, Group{Category: cat})
			subtotals = append(subtotals, decimal.Zero)
		}
		v.Groups[i].Lines = append(v.Groups[i].Lines, Line{
			Name:     t.TestName,
			Quantity: t.Quantity,
			Price:    money(t.Price),
			Discount: money(t.Discount),
			Net:      money(t.NetAmount),
		})
		subtotals[i] = subtotals[i].Add(t.NetAmount)
		grand = grand.Add(t.NetAmount)
	}
	for i := range v.Groups {
		v.Groups[i].Subtotal = money(subtotals[i])
	}
	v.GrandTotal = money(grand)
	return v
}
