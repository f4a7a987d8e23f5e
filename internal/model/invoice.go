package model

import "time"

// Invoice is generated best-effort once per paid booking.  Numbers are
// sequential per day in the form INV-YYYYMMDD-NNNN.  Customer and
// partner fields are snapshots taken at generation time so invoices
// stay stable when profiles change later.
type Invoice struct {
	ID            string        // invoices.id (UUID)
	InvoiceNumber string        // invoices.invoice_number
	BookingID     string        // invoices.booking_id
	CustomerID    uint64        // invoices.customer_id
	CustomerName  string        // invoices.customer_name
	CustomerEmail string        // invoices.customer_email
	PartnerID     uint64        // invoices.partner_id
	PartnerName   string        // invoices.partner_name
	ListingTitle  string        // invoices.listing_title
	Items         []InvoiceItem // rows of invoice_items
	SubtotalINR   float64       // invoices.subtotal_inr
	GSTAmountINR  float64       // invoices.gst_amount_inr
	CreditsUsed   int           // invoices.credits_used
	TotalINR      float64       // invoices.total_inr
	PaymentMethod PaymentMethod // invoices.payment_method
	Status        string        // invoices.status ("paid")
	InvoiceDate   time.Time     // invoices.invoice_date
	SessionDate   time.Time     // invoices.session_date
}

// InvoiceItem is one line of an invoice.
type InvoiceItem struct {
	Description  string  // invoice_items.description
	Quantity     int     // invoice_items.quantity
	UnitPriceINR float64 // invoice_items.unit_price_inr
	TotalINR     float64 // invoice_items.total_inr
}
