package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"mace-backend/utils"
)

// LineItem is one requested material of an RFQ. It is only ever stored as
// part of the RFQ's serialized item list.
type LineItem struct {
	Category        string          `json:"category,omitempty"`
	Name            string          `json:"name"`
	Size            string          `json:"size,omitempty"`
	Unit            string          `json:"unit,omitempty"`
	Price           decimal.Decimal `json:"price"`
	Quantity        decimal.Decimal `json:"quantity"`
	Vendors         []string        `json:"vendors,omitempty"`
	SelectedVendors []string        `json:"selectedVendors,omitempty"`
	Image           string          `json:"image,omitempty"`
}

// Key spellings seen from the quote builder and from sheet exports.
var (
	nameKeys     = []string{"name", "Item Name", "itemName", "item_name"}
	categoryKeys = []string{"category", "Category"}
	sizeKeys     = []string{"size", "Size/Option", "Size"}
	unitKeys     = []string{"unit", "Unit"}
	priceKeys    = []string{"price", "Price"}
	quantityKeys = []string{"quantity", "Quantity", "qty"}
	vendorsKeys  = []string{"vendors", "Vendors"}
	selectedKeys = []string{"selectedVendors", "selected_vendors"}
	imageKeys    = []string{"image", "Image"}
)

func (li *LineItem) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: line item must be an object", utils.ErrValidation)
	}

	var err error
	item := LineItem{
		Name:     pickString(raw, nameKeys),
		Category: pickString(raw, categoryKeys),
		Size:     pickString(raw, sizeKeys),
		Unit:     pickString(raw, unitKeys),
		Image:    pickString(raw, imageKeys),
	}
	if item.Price, err = pickDecimal(raw, priceKeys); err != nil {
		return fmt.Errorf("item %q price: %w", item.Name, err)
	}
	if item.Quantity, err = pickDecimal(raw, quantityKeys); err != nil {
		return fmt.Errorf("item %q quantity: %w", item.Name, err)
	}
	item.Vendors = pickNameList(raw, vendorsKeys)
	item.SelectedVendors = pickNameList(raw, selectedKeys)

	*li = item
	return nil
}

// ResolveVendors returns the vendor names this item goes to. An explicit
// selection wins over the vendors field; names are trimmed, empties dropped
// and duplicates collapsed, keeping first-seen order.
func (li LineItem) ResolveVendors() []string {
	list := cleanNames(li.SelectedVendors)
	if len(list) == 0 {
		list = cleanNames(li.Vendors)
	}
	return list
}

// ForVendor is the view of the item sent to a vendor: the buyer's vendor
// selection is not disclosed.
func (li LineItem) ForVendor() LineItem {
	li.SelectedVendors = nil
	li.Vendors = nil
	return li
}

func cleanNames(names []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func pickRaw(raw map[string]json.RawMessage, keys []string) (any, bool) {
	for _, k := range keys {
		msg, ok := raw[k]
		if !ok {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(msg))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil || v == nil {
			continue
		}
		return v, true
	}
	return nil, false
}

func pickString(raw map[string]json.RawMessage, keys []string) string {
	v, ok := pickRaw(raw, keys)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	default:
		return ""
	}
}

func pickDecimal(raw map[string]json.RawMessage, keys []string) (decimal.Decimal, error) {
	v, ok := pickRaw(raw, keys)
	if !ok {
		return decimal.Zero, nil
	}
	return utils.ParseDecimal(v)
}

// pickNameList accepts either a JSON array of names or one comma-joined string.
func pickNameList(raw map[string]json.RawMessage, keys []string) []string {
	v, ok := pickRaw(raw, keys)
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case string:
		return strings.Split(list, ",")
	case []any:
		out := make([]string, 0, len(list))
		for _, e := range list {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
