package receipt

import (
	"bytes"
	"html/template"
	"io"
)

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Receipt {{.ReceiptNumber}}</title>
<style>
body { font-family: Arial, sans-serif; font-size: 12px; }
table { width: 100%; border-collapse: collapse; }
th, td { border: 1px solid #444; padding: 4px; }
td.num, th.num { text-align: right; }
tr.subtotal td { font-weight: bold; }
</style>
</head>
<body>
<h2>{{.LabName}}</h2>
{{if .LabAddress}}<div>{{.LabAddress}}</div>{{end}}
{{if .LabPhone}}<div>Phone: {{.LabPhone}}</div>{{end}}
<h3>Cash Receipt</h3>
<table class="patient">
<tr><td>Receipt No</td><td>{{.ReceiptNumber}}</td><td>Date</td><td>{{.Date}}</td></tr>
<tr><td>Patient</td><td>{{.Patient.Name}}</td><td>Reg. No</td><td>{{.Patient.RegistrationNumber}}</td></tr>
<tr><td>Age/Sex</td><td>{{.Patient.Age}}/{{.Patient.Gender}}</td><td>Phone</td><td>{{.Patient.Phone}}</td></tr>
<tr><td>Address</td><td colspan="3">{{.Patient.Address}}</td></tr>
</table>
<br>
<table class="tests">
<tr><th>Test</th><th class="num">Qty</th><th class="num">Price</th><th class="num">Discount</th><th class="num">Amount</th></tr>
{{range .Groups}}<tr class="category"><td colspan="5"><strong>{{.Category}}</strong></td></tr>
{{range .Lines}}<tr><td>{{.Name}}</td><td class="num">{{.Quantity}}</td><td class="num">{{.Price}}</td><td class="num">{{.Discount}}</td><td class="num">{{.Net}}</td></tr>
{{end}}<tr class="subtotal"><td colspan="4">Subtotal ({{.Category}})</td><td class="num">{{.Subtotal}}</td></tr>
{{end}}<tr class="subtotal"><td colspan="4">Grand Total</td><td class="num">{{.GrandTotal}}</td></tr>
</table>
<br>
<table class="payment">
<tr><td>Paid</td><td class="num">{{.Payment.Paid}}</td></tr>
<tr><td>Due</td><td class="num">{{.Payment.Due}}</td></tr>
<tr><td>Status</td><td>{{.Payment.Status}}{{if .Payment.Method}} ({{.Payment.Method}}){{end}}</td></tr>
</table>
</body>
</html>
`))

// RenderHTML writes the printable receipt.
func RenderHTML(w io.Writer, v View) error {
	return receiptTemplate.Execute(w, v)
}

func Render(v View) ([]byte, error) {
	var buf bytes.Buffer
	if err := RenderHTML(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
