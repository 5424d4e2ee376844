package models

import (
	"testing"
	"time"

	"github.com/clearlens/campaign-engine/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		segment SegmentConfig
		wantErr bool
	}{
		{
			name:    "empty segment defaults to and",
			segment: SegmentConfig{},
		},
		{
			name: "string condition",
			segment: SegmentConfig{
				Logic: SegmentLogicAnd,
				Conditions: []SegmentCondition{
					{Field: "city", Operator: SegmentOpEq, Value: "Portland"},
				},
			},
		},
		{
			name: "relative time condition",
			segment: SegmentConfig{
				Logic: SegmentLogicOr,
				Conditions: []SegmentCondition{
					{Field: "last_exam_at", Operator: SegmentOpOlderThanDays, Value: 365},
					{Field: "last_order_at", Operator: SegmentOpWithinDays, Value: 90},
				},
			},
		},
		{
			name: "in with string list",
			segment: SegmentConfig{
				Conditions: []SegmentCondition{
					{Field: "city", Operator: SegmentOpIn, Value: []any{"Portland", "Salem"}},
				},
			},
		},
		{
			name: "null check on nullable field",
			segment: SegmentConfig{
				Conditions: []SegmentCondition{
					{Field: "last_exam_at", Operator: SegmentOpIsNull},
				},
			},
		},
		{
			name: "unknown logic",
			segment: SegmentConfig{
				Logic: "xor",
			},
			wantErr: true,
		},
		{
			name: "unknown field",
			segment: SegmentConfig{
				Conditions: []SegmentCondition{
					{Field: "favorite_frame", Operator: SegmentOpEq, Value: "aviator"},
				},
			},
			wantErr: true,
		},
		{
			name: "operator not allowed for kind",
			segment: SegmentConfig{
				Conditions: []SegmentCondition{
					{Field: "city", Operator: SegmentOpGt, Value: "A"},
				},
			},
			wantErr: true,
		},
		{
			name: "null check on non-nullable field",
			segment: SegmentConfig{
				Conditions: []SegmentCondition{
					{Field: "first_name", Operator: SegmentOpIsNull},
				},
			},
			wantErr: true,
		},
		{
			name: "older_than_days without number",
			segment: SegmentConfig{
				Conditions: []SegmentCondition{
					{Field: "last_exam_at", Operator: SegmentOpOlderThanDays, Value: "a while"},
				},
			},
			wantErr: true,
		},
		{
			name: "bool field with string value",
			segment: SegmentConfig{
				Conditions: []SegmentCondition{
					{Field: "is_active", Operator: SegmentOpEq, Value: "yes"},
				},
			},
			wantErr: true,
		},
		{
			name: "time field with bad timestamp",
			segment: SegmentConfig{
				Conditions: []SegmentCondition{
					{Field: "created_at", Operator: SegmentOpGte, Value: "last tuesday"},
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.segment.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSegmentConfigValidateDefaultsLogic(t *testing.T) {
	segment := SegmentConfig{}
	require.NoError(t, segment.Validate())
	assert.Equal(t, SegmentLogicAnd, segment.Logic)
}

func TestSegmentMatches(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	customer := &Customer{
		FirstName:   "Ana",
		LastName:    "Silva",
		City:        utils.ToPtr("Portland"),
		BirthYear:   utils.ToPtr(1985),
		TotalOrders: 4,
		IsActive:    true,
		LastExamAt:  utils.ToPtr(now.Add(-400 * 24 * time.Hour)),
	}

	tests := []struct {
		name    string
		segment SegmentConfig
		want    bool
	}{
		{
			name:    "no conditions matches everyone",
			segment: SegmentConfig{},
			want:    true,
		},
		{
			name: "and all true",
			segment: SegmentConfig{
				Logic: SegmentLogicAnd,
				Conditions: []SegmentCondition{
					{Field: "city", Operator: SegmentOpEq, Value: "Portland"},
					{Field: "last_exam_at", Operator: SegmentOpOlderThanDays, Value: 365},
				},
			},
			want: true,
		},
		{
			name: "and one false",
			segment: SegmentConfig{
				Logic: SegmentLogicAnd,
				Conditions: []SegmentCondition{
					{Field: "city", Operator: SegmentOpEq, Value: "Portland"},
					{Field: "total_orders", Operator: SegmentOpGt, Value: 10},
				},
			},
			want: false,
		},
		{
			name: "or one true",
			segment: SegmentConfig{
				Logic: SegmentLogicOr,
				Conditions: []SegmentCondition{
					{Field: "city", Operator: SegmentOpEq, Value: "Salem"},
					{Field: "total_orders", Operator: SegmentOpGte, Value: 4},
				},
			},
			want: true,
		},
		{
			name: "within days misses an overdue exam",
			segment: SegmentConfig{
				Conditions: []SegmentCondition{
					{Field: "last_exam_at", Operator: SegmentOpWithinDays, Value: 90},
				},
			},
			want: false,
		},
		{
			name: "null check on missing phone",
			segment: SegmentConfig{
				Conditions: []SegmentCondition{
					{Field: "phone", Operator: SegmentOpIsNull},
				},
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.segment.Matches(customer, now))
		})
	}
}

func TestSegmentMatchesOptOutExclusion(t *testing.T) {
	now := utils.UTCNow()
	optedOut := &Customer{FirstName: "Dev", LastName: "Patel", MarketingOptOut: true}

	everyone := SegmentConfig{}
	assert.True(t, everyone.Matches(optedOut, now))

	excluding := SegmentConfig{ExcludeMarketingOptOut: true}
	assert.False(t, excluding.Matches(optedOut, now))
}
