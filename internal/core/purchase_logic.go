package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Normalize cleans up caller input: trims text fields, defaults the status to draft and
// drops blank rows (no item selected).
func (in *PurchaseInput) Normalize() {
	in.VendorName = strings.TrimSpace(in.VendorName)
	in.SupplierContact = strings.TrimSpace(in.SupplierContact)
	in.SupplierAddress = strings.TrimSpace(in.SupplierAddress)
	in.ShipTo = strings.TrimSpace(in.ShipTo)
	in.Reference = strings.TrimSpace(in.Reference)

	if strings.TrimSpace(string(in.Status)) == "" {
		in.Status = PurchaseDraft
	}
	in.Status = PurchaseStatus(strings.ToLower(strings.TrimSpace(string(in.Status))))

	var lines []PurchaseLineInput
	for _, l := range in.Lines {
		l.ItemID = strings.TrimSpace(l.ItemID)
		if l.ItemID == "" {
			continue
		}
		lines = append(lines, l)
	}
	in.Lines = lines
}

// Validate enforces the receipt preconditions. Lines with zero quantity are ignored; at least
// one line must reference an item with a positive quantity.
func (in *PurchaseInput) Validate() error {
	if in.VendorName == "" {
		return &ValidationError{Field: "vendor_name", Message: "vendor name is required"}
	}
	if !in.Status.Valid() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("unknown purchase status %q", in.Status)}
	}
	if in.DeliveryFee != nil && in.DeliveryFee.IsNegative() {
		return &ValidationError{Field: "delivery_fee", Message: "delivery fee cannot be negative"}
	}

	valid := 0
	for i, l := range in.Lines {
		if l.Quantity < 0 {
			return &ValidationError{Field: fmt.Sprintf("lines[%d].quantity", i), Message: "quantity cannot be negative"}
		}
		if l.UnitPrice != nil && l.UnitPrice.IsNegative() {
			return &ValidationError{Field: fmt.Sprintf("lines[%d].unit_price", i), Message: "unit price cannot be negative"}
		}
		if l.Quantity > 0 {
			valid++
		}
	}
	if valid == 0 {
		return &ValidationError{Field: "lines", Message: "at least one line with an item and a positive quantity is required"}
	}
	return nil
}

// buildLines converts validated input lines into purchase lines, keeping only lines with a
// positive quantity, and apportions the delivery fee across them.
func buildLines(inputs []PurchaseLineInput, deliveryFee *decimal.Decimal) []PurchaseLine {
	var lines []PurchaseLine
	for _, in := range inputs {
		if in.Quantity <= 0 {
			continue
		}
		line := PurchaseLine{ItemID: in.ItemID, Quantity: in.Quantity}
		if in.UnitPrice != nil {
			price := *in.UnitPrice
			line.UnitPrice = &price
		}
		lines = append(lines, line)
	}

	fee := decimal.Zero
	if deliveryFee != nil {
		fee = *deliveryFee
	}
	ApportionDelivery(lines, fee)
	return lines
}

// ApportionDelivery splits fee across lines in proportion to quantity:
//
//	deliveryShare = fee * line.quantity / totalQuantity
//
// Shares use a largest-remainder split: each exact share is floored to cents, then the cents
// left over go one at a time to the lines with the largest dropped fractions (earlier lines win
// ties). Shares are never negative and always sum to exactly fee. For priced lines it also sets
// LineTotal, AdjustedLineTotal (= LineTotal + share) and AdjustedUnitPrice
// (= AdjustedLineTotal / quantity).
func ApportionDelivery(lines []PurchaseLine, fee decimal.Decimal) {
	totalQty := 0
	for _, l := range lines {
		totalQty += l.Quantity
	}
	if totalQty == 0 {
		return
	}

	shares := splitCents(lines, fee, decimal.NewFromInt(int64(totalQty)))
	for i := range lines {
		line := &lines[i]
		qty := decimal.NewFromInt(int64(line.Quantity))
		share := shares[i]
		line.DeliveryShare = &share

		if line.UnitPrice == nil {
			line.LineTotal = nil
			line.AdjustedLineTotal = nil
			line.AdjustedUnitPrice = nil
			continue
		}
		lineTotal := line.UnitPrice.Mul(qty)
		adjustedTotal := lineTotal.Add(share)
		adjustedPrice := adjustedTotal.DivRound(qty, 4)
		line.LineTotal = &lineTotal
		line.AdjustedLineTotal = &adjustedTotal
		line.AdjustedUnitPrice = &adjustedPrice
	}
}

var cent = decimal.New(1, -2)

// splitCents returns the largest-remainder cent split of fee weighted by line quantity.
func splitCents(lines []PurchaseLine, fee, totalQty decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(lines))
	fractions := make([]decimal.Decimal, len(lines))
	allocated := decimal.Zero
	for i, l := range lines {
		exact := fee.Mul(decimal.NewFromInt(int64(l.Quantity))).Div(totalQty)
		shares[i] = exact.Truncate(2)
		fractions[i] = exact.Sub(shares[i])
		allocated = allocated.Add(shares[i])
	}

	rank := make([]int, len(lines))
	for i := range rank {
		rank[i] = i
	}
	sort.SliceStable(rank, func(a, b int) bool { return fractions[rank[a]].GreaterThan(fractions[rank[b]]) })

	leftover := fee.Sub(allocated)
	for k := 0; leftover.GreaterThanOrEqual(cent); k++ {
		i := rank[k%len(rank)]
		shares[i] = shares[i].Add(cent)
		leftover = leftover.Sub(cent)
	}
	// Sub-cent residue only exists when fee itself has more than two decimals.
	if leftover.IsPositive() {
		shares[rank[0]] = shares[rank[0]].Add(leftover)
	}
	return shares
}
