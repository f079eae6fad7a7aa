package models

import (
	"github.com/google/uuid"

	"barbershop-system/internal/commission"
)

func (m StaffMember) ToCommission() commission.StaffMember {
	return commission.StaffMember{
		ID:                m.ID.String(),
		Name:              m.Name,
		ServicePercentage: m.ServicePercentage,
		ProductPercentage: m.ProductPercentage,
		Active:            m.IsActive,
	}
}

// ToCommission maps a sale and its preloaded items.
func (m Sale) ToCommission() commission.Sale {
	s := commission.Sale{
		ID:                  m.ID.String(),
		StaffID:             m.StaffID.String(),
		Status:              commission.SaleStatus(m.Status),
		Total:               m.Total,
		Discount:            m.Discount,
		DiscountInSubtotals: m.DiscountInSubtotals,
		PaidAt:              m.PaidAt,
		CreatedAt:           m.CreatedAt,
		Items:               make([]commission.LineItem, 0, len(m.Items)),
	}
	if m.ClientID != nil {
		s.ClientID = m.ClientID.String()
	}
	for _, it := range m.Items {
		s.Items = append(s.Items, commission.LineItem{
			ID:        it.ID.String(),
			ItemID:    it.ItemID.String(),
			Category:  commission.Category(it.Category),
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Discount:  it.Discount,
			Subtotal:  it.Subtotal,
		})
	}
	return s
}

func (m CommissionOverride) ToCommission() commission.Override {
	return commission.Override{
		StaffID:    m.StaffID.String(),
		Category:   commission.Category(m.Category),
		ItemID:     m.ItemID.String(),
		Percentage: m.Percentage,
	}
}

func (m CommissionHistoryRecord) ToCommission() commission.HistoryRecord {
	return commission.HistoryRecord{
		ID:         m.ID.String(),
		SaleID:     m.SaleID.String(),
		StaffID:    m.StaffID.String(),
		LineItemID: m.LineItemID.String(),
		Category:   commission.Category(m.Category),
		Percentage: m.Percentage,
		Amount:     m.Amount,
		CreatedAt:  m.CreatedAt,
	}
}

// HistoryFromCommission builds a ledger row. Ids that are not uuids are rejected.
func HistoryFromCommission(companyID uuid.UUID, r commission.HistoryRecord) (CommissionHistoryRecord, error) {
	saleID, err := uuid.Parse(r.SaleID)
	if err != nil {
		return CommissionHistoryRecord{}, err
	}
	staffID, err := uuid.Parse(r.StaffID)
	if err != nil {
		return CommissionHistoryRecord{}, err
	}
	lineID, err := uuid.Parse(r.LineItemID)
	if err != nil {
		return CommissionHistoryRecord{}, err
	}
	return CommissionHistoryRecord{
		CompanyID:  companyID,
		SaleID:     saleID,
		StaffID:    staffID,
		LineItemID: lineID,
		Category:   string(r.Category),
		Percentage: r.Percentage,
		Amount:     r.Amount,
		CreatedAt:  r.CreatedAt,
	}, nil
}
