package models

import (
	"sync"
	"testing"

	"gorm.io/gorm/schema"
)

// Percentages are stored exactly as entered, so their columns carry no
// precision or scale limit.
func TestPercentageColumnsAreUnboundedNumeric(t *testing.T) {
	tests := []struct {
		model any
		field string
	}{
		{&StaffMember{}, "ServicePercentage"},
		{&StaffMember{}, "ProductPercentage"},
		{&CommissionOverride{}, "Percentage"},
		{&CommissionHistoryRecord{}, "Percentage"},
		{&CommissionHistoryRecord{}, "Amount"},
	}
	cache := &sync.Map{}
	for _, tt := range tests {
		s, err := schema.Parse(tt.model, cache, schema.NamingStrategy{})
		if err != nil {
			t.Fatalf("parse %T: %v", tt.model, err)
		}
		f := s.LookUpField(tt.field)
		if f == nil {
			t.Fatalf("%s.%s not found", s.Name, tt.field)
		}
		if f.DataType != "numeric" {
			t.Errorf("%s.%s column type = %q, want numeric", s.Name, tt.field, f.DataType)
		}
	}
}
