package printing

import (
	"bytes"
	"html/template"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fablab/backend/internal/domain/billing"
	"github.com/fablab/backend/internal/domain/member"
	"github.com/fablab/backend/internal/domain/shared/valueobject"
)

const documentDateLayout = "02/01/2006"

// InvoiceDocumentData is the template payload for an invoice PDF
type InvoiceDocumentData struct {
	Reference     string
	IssuedAt      string
	CustomerName  string
	CustomerEmail string
	PaymentMethod string
	Lines         []DocumentLine
	Total         string
}

// DocumentLine is one row of a rendered document table
type DocumentLine struct {
	Description string
	Amount      string
}

// ScheduleDocumentData is the template payload for a payment schedule PDF
type ScheduleDocumentData struct {
	Reference    string
	CustomerName string
	PlanName     string
	ExpiresAt    string
	Deadlines    []ScheduleDeadlineLine
	Total        string
}

// ScheduleDeadlineLine is one deadline row of a schedule document
type ScheduleDeadlineLine struct {
	DueDate string
	Amount  string
	State   string
}

const invoiceTemplateHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Invoice {{.Reference}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; font-size: 12px; color: #222; }
h1 { font-size: 20px; }
.meta { margin-bottom: 24px; }
.meta div { margin: 2px 0; }
table { width: 100%; border-collapse: collapse; margin-top: 12px; }
th, td { border-bottom: 1px solid #ccc; padding: 6px 4px; text-align: left; }
td.amount, th.amount { text-align: right; }
tfoot td { font-weight: bold; border-bottom: none; }
</style>
</head>
<body>
<h1>Invoice {{.Reference}}</h1>
<div class="meta">
<div>Issued: {{.IssuedAt}}</div>
<div>Customer: {{.CustomerName}} ({{.CustomerEmail}})</div>
{{if .PaymentMethod}}<div>Payment method: {{.PaymentMethod}}</div>{{end}}
</div>
<table>
<thead><tr><th>Description</th><th class="amount">Amount</th></tr></thead>
<tbody>
{{range .Lines}}<tr><td>{{.Description}}</td><td class="amount">{{.Amount}}</td></tr>
{{end}}</tbody>
<tfoot><tr><td>Total</td><td class="amount">{{.Total}}</td></tr></tfoot>
</table>
</body>
</html>`

const scheduleTemplateHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Payment schedule {{.Reference}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; font-size: 12px; color: #222; }
h1 { font-size: 20px; }
.meta { margin-bottom: 24px; }
.meta div { margin: 2px 0; }
table { width: 100%; border-collapse: collapse; margin-top: 12px; }
th, td { border-bottom: 1px solid #ccc; padding: 6px 4px; text-align: left; }
td.amount, th.amount { text-align: right; }
tfoot td { font-weight: bold; border-bottom: none; }
</style>
</head>
<body>
<h1>Payment schedule {{.Reference}}</h1>
<div class="meta">
<div>Customer: {{.CustomerName}}</div>
<div>Plan: {{.PlanName}}</div>
<div>Expires: {{.ExpiresAt}}</div>
</div>
<table>
<thead><tr><th>Due date</th><th>Status</th><th class="amount">Amount</th></tr></thead>
<tbody>
{{range .Deadlines}}<tr><td>{{.DueDate}}</td><td>{{.State}}</td><td class="amount">{{.Amount}}</td></tr>
{{end}}</tbody>
<tfoot><tr><td colspan="2">Total</td><td class="amount">{{.Total}}</td></tr></tfoot>
</table>
</body>
</html>`

// DocumentTemplates renders domain aggregates to printable HTML
type DocumentTemplates struct {
	invoice  *template.Template
	schedule *template.Template
}

// NewDocumentTemplates parses the built-in invoice and schedule templates
func NewDocumentTemplates() *DocumentTemplates {
	return &DocumentTemplates{
		invoice:  template.Must(template.New("invoice").Parse(invoiceTemplateHTML)),
		schedule: template.Must(template.New("schedule").Parse(scheduleTemplateHTML)),
	}
}

// InvoiceHTML renders an invoice document for the given customer
func (t *DocumentTemplates) InvoiceHTML(inv *billing.Invoice, customer *member.Profile) (string, error) {
	data := InvoiceDocumentData{
		Reference:     inv.Reference,
		IssuedAt:      inv.IssuedAt.Format(documentDateLayout),
		CustomerName:  customer.FullName(),
		CustomerEmail: customer.Email,
		PaymentMethod: formatLabel(inv.PaymentMethod.String()),
		Total:         formatMoney(inv.Total),
	}
	for _, item := range inv.Items {
		data.Lines = append(data.Lines, DocumentLine{
			Description: item.Description,
			Amount:      formatMoney(item.Amount),
		})
	}

	var buf bytes.Buffer
	if err := t.invoice.Execute(&buf, data); err != nil {
		return "", NewRenderError(ErrCodeInvalidHTML, "invoice template execution failed", err)
	}
	return buf.String(), nil
}

// ScheduleHTML renders a payment schedule document with its deadline table
func (t *DocumentTemplates) ScheduleHTML(schedule *billing.PaymentSchedule, customer *member.Profile, plan *billing.Plan) (string, error) {
	data := ScheduleDocumentData{
		Reference:    schedule.Reference,
		CustomerName: customer.FullName(),
		PlanName:     plan.Name,
		ExpiresAt:    schedule.ExpiresAt.Format(documentDateLayout),
		Total:        formatMoney(schedule.Total),
	}
	for _, item := range schedule.Items {
		data.Deadlines = append(data.Deadlines, ScheduleDeadlineLine{
			DueDate: item.DueDate.Format(documentDateLayout),
			Amount:  formatMoney(item.Amount),
			State:   formatLabel(item.State.String()),
		})
	}

	var buf bytes.Buffer
	if err := t.schedule.Execute(&buf, data); err != nil {
		return "", NewRenderError(ErrCodeInvalidHTML, "schedule template execution failed", err)
	}
	return buf.String(), nil
}

func formatMoney(m valueobject.Money) string {
	return m.Amount().StringFixed(2) + " " + string(m.Currency())
}

var labelCaser = cases.Title(language.English)

// formatLabel turns enum-style values such as REQUIRE_PAYMENT_METHOD into
// readable document labels
func formatLabel(v string) string {
	return labelCaser.String(strings.ToLower(strings.ReplaceAll(v, "_", " ")))
}
