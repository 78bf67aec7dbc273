package ingest

import "x2beta/internal/domain"

// FieldMapping binds one canonical target to an ordered candidate list of
// source headers; the first present source wins. Numeric targets default to
// zero when no candidate exists, text targets to the empty string.
type FieldMapping struct {
	Target   string
	Sources  []string
	Numeric  bool
	Required bool
}

// ChannelMapping describes how one report type lands in the canonical row
// schema.
type ChannelMapping struct {
	ReportType string
	Fields     []FieldMapping
}

// channelMappings is keyed by channel. Targets match NormalizedRow fields.
var channelMappings = map[domain.Channel]ChannelMapping{
	domain.ChannelAmazonMTR: {
		ReportType: "amazon_mtr",
		Fields: []FieldMapping{
			{Target: "invoice_date", Sources: []string{"invoice_date", "order_date", "shipment_date"}, Required: true},
			{Target: "type", Sources: []string{"transaction_type", "type"}},
			{Target: "order_id", Sources: []string{"order_id"}},
			{Target: "sku", Sources: []string{"sku", "seller_sku"}},
			{Target: "asin", Sources: []string{"asin"}},
			{Target: "quantity", Sources: []string{"quantity", "qty"}, Numeric: true},
			{Target: "taxable_value", Sources: []string{"principal_amount", "tax_exclusive_gross", "invoice_amount"}, Numeric: true, Required: true},
			{Target: "shipping_value", Sources: []string{"shipping_amount", "shipping_charge"}, Numeric: true},
			{Target: "state_code", Sources: []string{"ship_to_state", "bill_from_state"}, Required: true},
		},
	},
	domain.ChannelAmazonSTR: {
		ReportType: "amazon_str",
		Fields: []FieldMapping{
			{Target: "invoice_date", Sources: []string{"invoice_date", "shipment_date"}, Required: true},
			{Target: "type", Sources: []string{"transaction_type", "type"}},
			{Target: "order_id", Sources: []string{"order_id"}},
			{Target: "sku", Sources: []string{"sku", "seller_sku"}},
			{Target: "asin", Sources: []string{"asin"}},
			{Target: "quantity", Sources: []string{"quantity", "qty"}, Numeric: true},
			{Target: "taxable_value", Sources: []string{"taxable_value", "tax_exclusive_gross", "invoice_amount"}, Numeric: true, Required: true},
			{Target: "gst_rate", Sources: []string{"igst_rate", "gst_rate"}, Numeric: true},
			{Target: "state_code", Sources: []string{"ship_to_state", "ship_state"}, Required: true},
			{Target: "seller_state", Sources: []string{"seller_state", "ship_from_state"}},
		},
	},
	domain.ChannelFlipkart: {
		ReportType: "flipkart",
		Fields: []FieldMapping{
			{Target: "invoice_date", Sources: []string{"invoice_date", "order_date"}, Required: true},
			{Target: "type", Sources: []string{"event_type", "type"}},
			{Target: "order_id", Sources: []string{"order_id", "order_item_id"}},
			{Target: "sku", Sources: []string{"sku", "fsn", "seller_sku"}},
			{Target: "quantity", Sources: []string{"quantity", "item_quantity"}, Numeric: true},
			{Target: "taxable_value", Sources: []string{"taxable_value", "price_before_discount", "selling_price"}, Numeric: true, Required: true},
			{Target: "gst_rate", Sources: []string{"gst_rate", "tax_rate"}, Numeric: true},
			{Target: "state_code", Sources: []string{"customer_s_delivery_state", "delivery_state", "state"}, Required: true},
			{Target: "seller_state", Sources: []string{"seller_state", "warehouse_state"}},
		},
	},
	domain.ChannelPepperfry: {
		ReportType: "pepperfry",
		Fields: []FieldMapping{
			{Target: "invoice_date", Sources: []string{"invoice_date", "order_date"}, Required: true},
			{Target: "order_id", Sources: []string{"order_id", "order_no"}},
			{Target: "sku", Sources: []string{"sku", "vendor_sku"}},
			{Target: "quantity", Sources: []string{"quantity", "qty"}, Numeric: true},
			{Target: "taxable_value", Sources: []string{"taxable_value", "base_amount", "invoice_amount"}, Numeric: true, Required: true},
			{Target: "gst_rate", Sources: []string{"gst_rate", "tax_rate"}, Numeric: true},
			{Target: "state_code", Sources: []string{"customer_state", "ship_to_state", "state"}, Required: true},
			{Target: "total_qty", Sources: []string{"total_qty", "total_quantity"}, Numeric: true},
			{Target: "returned_qty", Sources: []string{"returned_qty", "return_qty", "returned_quantity"}, Numeric: true},
		},
	},
}

// MappingFor returns the channel's mapping.
func MappingFor(channel domain.Channel) (ChannelMapping, bool) {
	m, ok := channelMappings[channel]
	return m, ok
}
