package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/clearlens/campaign-engine/utils"
)

// SegmentLogic combines the conditions of a segment
type SegmentLogic string

const (
	SegmentLogicAnd SegmentLogic = "and"
	SegmentLogicOr  SegmentLogic = "or"
)

// Valid checks if the logic is valid
func (l SegmentLogic) Valid() bool {
	return l == SegmentLogicAnd || l == SegmentLogicOr
}

// SegmentOperator is a comparison applied by a segment condition
type SegmentOperator string

const (
	SegmentOpEq            SegmentOperator = "eq"
	SegmentOpNeq           SegmentOperator = "neq"
	SegmentOpGt            SegmentOperator = "gt"
	SegmentOpGte           SegmentOperator = "gte"
	SegmentOpLt            SegmentOperator = "lt"
	SegmentOpLte           SegmentOperator = "lte"
	SegmentOpIn            SegmentOperator = "in"
	SegmentOpNotIn         SegmentOperator = "not_in"
	SegmentOpIsNull        SegmentOperator = "is_null"
	SegmentOpNotNull       SegmentOperator = "not_null"
	SegmentOpOlderThanDays SegmentOperator = "older_than_days"
	SegmentOpWithinDays    SegmentOperator = "within_days"
)

// segmentFieldKind classifies a filterable customer attribute
type segmentFieldKind int

const (
	segmentFieldString segmentFieldKind = iota
	segmentFieldNumber
	segmentFieldBool
	segmentFieldTime
)

// segmentField describes one entry of the filterable-attribute allow list
type segmentField struct {
	Column   string
	Kind     segmentFieldKind
	Nullable bool
}

// SegmentFields is the allow list of customer attributes a segment
// condition may reference. Anything else is rejected at validation time,
// so conditions never reach the query builder with arbitrary column names.
var SegmentFields = map[string]segmentField{
	"first_name":        {Column: "first_name", Kind: segmentFieldString},
	"last_name":         {Column: "last_name", Kind: segmentFieldString},
	"email":             {Column: "email", Kind: segmentFieldString, Nullable: true},
	"phone":             {Column: "phone", Kind: segmentFieldString, Nullable: true},
	"city":              {Column: "city", Kind: segmentFieldString, Nullable: true},
	"birth_year":        {Column: "birth_year", Kind: segmentFieldNumber, Nullable: true},
	"total_orders":      {Column: "total_orders", Kind: segmentFieldNumber},
	"is_active":         {Column: "is_active", Kind: segmentFieldBool},
	"marketing_opt_out": {Column: "marketing_opt_out", Kind: segmentFieldBool},
	"last_exam_at":      {Column: "last_exam_at", Kind: segmentFieldTime, Nullable: true},
	"last_order_at":     {Column: "last_order_at", Kind: segmentFieldTime, Nullable: true},
	"created_at":        {Column: "created_at", Kind: segmentFieldTime},
}

// operatorsByKind lists which operators apply to each field kind
var operatorsByKind = map[segmentFieldKind][]SegmentOperator{
	segmentFieldString: {SegmentOpEq, SegmentOpNeq, SegmentOpIn, SegmentOpNotIn, SegmentOpIsNull, SegmentOpNotNull},
	segmentFieldNumber: {SegmentOpEq, SegmentOpNeq, SegmentOpGt, SegmentOpGte, SegmentOpLt, SegmentOpLte, SegmentOpIsNull, SegmentOpNotNull},
	segmentFieldBool:   {SegmentOpEq, SegmentOpNeq},
	segmentFieldTime:   {SegmentOpGt, SegmentOpGte, SegmentOpLt, SegmentOpLte, SegmentOpOlderThanDays, SegmentOpWithinDays, SegmentOpIsNull, SegmentOpNotNull},
}

// SegmentCondition is one attribute comparison within a segment
type SegmentCondition struct {
	Field    string          `json:"field"`
	Operator SegmentOperator `json:"operator"`
	Value    any             `json:"value,omitempty"`
}

// DaysValue returns the condition value as a day count for the relative
// time operators.
func (c SegmentCondition) DaysValue() (float64, bool) {
	return toFloat(c.Value)
}

// SegmentConfig represents the JSON audience definition of a campaign
type SegmentConfig struct {
	Logic      SegmentLogic       `json:"logic"`
	Conditions []SegmentCondition `json:"conditions"`

	// ExcludeMarketingOptOut removes opted-out customers regardless of
	// what the conditions would otherwise match.
	ExcludeMarketingOptOut bool `json:"exclude_marketing_opt_out"`
}

// Value implements the driver.Valuer interface for SegmentConfig
func (s SegmentConfig) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements the sql.Scanner interface for SegmentConfig
func (s *SegmentConfig) Scan(value any) error {
	if value == nil {
		*s = SegmentConfig{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into SegmentConfig", value)
	}

	return json.Unmarshal(bytes, s)
}

// Validate checks every condition against the field allow list and the
// per-kind operator table.
func (s *SegmentConfig) Validate() error {
	if s.Logic == "" {
		s.Logic = SegmentLogicAnd
	}
	if !s.Logic.Valid() {
		return fmt.Errorf("invalid segment logic: %s", s.Logic)
	}

	for i, cond := range s.Conditions {
		field, ok := SegmentFields[cond.Field]
		if !ok {
			return fmt.Errorf("condition %d references unknown field: %s", i, cond.Field)
		}
		if !operatorAllowed(field.Kind, cond.Operator) {
			return fmt.Errorf("condition %d: operator %s not allowed for field %s", i, cond.Operator, cond.Field)
		}
		if err := validateConditionValue(field, cond); err != nil {
			return fmt.Errorf("condition %d: %w", i, err)
		}
	}

	return nil
}

func operatorAllowed(kind segmentFieldKind, op SegmentOperator) bool {
	for _, allowed := range operatorsByKind[kind] {
		if op == allowed {
			return true
		}
	}
	return false
}

func validateConditionValue(field segmentField, cond SegmentCondition) error {
	switch cond.Operator {
	case SegmentOpIsNull, SegmentOpNotNull:
		if !field.Nullable {
			return fmt.Errorf("field %s is not nullable", cond.Field)
		}
		return nil
	case SegmentOpIn, SegmentOpNotIn:
		if _, ok := toStringSlice(cond.Value); !ok {
			return fmt.Errorf("operator %s requires a list of strings", cond.Operator)
		}
		return nil
	case SegmentOpOlderThanDays, SegmentOpWithinDays:
		if _, ok := toFloat(cond.Value); !ok {
			return fmt.Errorf("operator %s requires a number of days", cond.Operator)
		}
		return nil
	}

	switch field.Kind {
	case segmentFieldString:
		if _, ok := cond.Value.(string); !ok {
			return fmt.Errorf("field %s requires a string value", cond.Field)
		}
	case segmentFieldNumber:
		if _, ok := toFloat(cond.Value); !ok {
			return fmt.Errorf("field %s requires a numeric value", cond.Field)
		}
	case segmentFieldBool:
		if _, ok := cond.Value.(bool); !ok {
			return fmt.Errorf("field %s requires a boolean value", cond.Field)
		}
	case segmentFieldTime:
		str, ok := cond.Value.(string)
		if !ok {
			return fmt.Errorf("field %s requires an RFC3339 timestamp value", cond.Field)
		}
		if _, err := time.Parse(time.RFC3339, str); err != nil {
			return fmt.Errorf("field %s: %w", cond.Field, err)
		}
	}

	return nil
}

// Matches evaluates the segment against a single customer in memory. The
// repository composes the equivalent SQL for bulk evaluation; this form
// backs single-customer checks and tests.
func (s *SegmentConfig) Matches(c *Customer, now time.Time) bool {
	if s.ExcludeMarketingOptOut && c.MarketingOptOut {
		return false
	}

	logic := s.Logic
	if logic == "" {
		logic = SegmentLogicAnd
	}

	if len(s.Conditions) == 0 {
		return true
	}

	for _, cond := range s.Conditions {
		matched := conditionMatches(cond, c, now)
		if logic == SegmentLogicAnd && !matched {
			return false
		}
		if logic == SegmentLogicOr && matched {
			return true
		}
	}

	return logic == SegmentLogicAnd
}

func conditionMatches(cond SegmentCondition, c *Customer, now time.Time) bool {
	field, ok := SegmentFields[cond.Field]
	if !ok {
		return false
	}

	switch field.Kind {
	case segmentFieldString:
		return stringConditionMatches(cond, customerStringField(c, cond.Field))
	case segmentFieldNumber:
		return numberConditionMatches(cond, customerNumberField(c, cond.Field))
	case segmentFieldBool:
		return boolConditionMatches(cond, customerBoolField(c, cond.Field))
	case segmentFieldTime:
		return timeConditionMatches(cond, customerTimeField(c, cond.Field), now)
	default:
		return false
	}
}

func customerStringField(c *Customer, field string) *string {
	switch field {
	case "first_name":
		return &c.FirstName
	case "last_name":
		return &c.LastName
	case "email":
		return c.Email
	case "phone":
		return c.Phone
	case "city":
		return c.City
	default:
		return nil
	}
}

func customerNumberField(c *Customer, field string) *float64 {
	switch field {
	case "total_orders":
		return utils.ToPtr(float64(c.TotalOrders))
	case "birth_year":
		if c.BirthYear == nil {
			return nil
		}
		return utils.ToPtr(float64(*c.BirthYear))
	default:
		return nil
	}
}

func customerBoolField(c *Customer, field string) *bool {
	switch field {
	case "is_active":
		return &c.IsActive
	case "marketing_opt_out":
		return &c.MarketingOptOut
	default:
		return nil
	}
}

func customerTimeField(c *Customer, field string) *time.Time {
	switch field {
	case "last_exam_at":
		return c.LastExamAt
	case "last_order_at":
		return c.LastOrderAt
	case "created_at":
		return &c.CreatedAt
	default:
		return nil
	}
}

func stringConditionMatches(cond SegmentCondition, actual *string) bool {
	switch cond.Operator {
	case SegmentOpIsNull:
		return actual == nil
	case SegmentOpNotNull:
		return actual != nil
	}
	if actual == nil {
		return false
	}

	switch cond.Operator {
	case SegmentOpEq:
		expected, _ := cond.Value.(string)
		return strings.EqualFold(*actual, expected)
	case SegmentOpNeq:
		expected, _ := cond.Value.(string)
		return !strings.EqualFold(*actual, expected)
	case SegmentOpIn, SegmentOpNotIn:
		list, _ := toStringSlice(cond.Value)
		found := false
		for _, item := range list {
			if strings.EqualFold(*actual, item) {
				found = true
				break
			}
		}
		if cond.Operator == SegmentOpIn {
			return found
		}
		return !found
	default:
		return false
	}
}

func numberConditionMatches(cond SegmentCondition, actual *float64) bool {
	switch cond.Operator {
	case SegmentOpIsNull:
		return actual == nil
	case SegmentOpNotNull:
		return actual != nil
	}
	if actual == nil {
		return false
	}

	expected, ok := toFloat(cond.Value)
	if !ok {
		return false
	}

	switch cond.Operator {
	case SegmentOpEq:
		return *actual == expected
	case SegmentOpNeq:
		return *actual != expected
	case SegmentOpGt:
		return *actual > expected
	case SegmentOpGte:
		return *actual >= expected
	case SegmentOpLt:
		return *actual < expected
	case SegmentOpLte:
		return *actual <= expected
	default:
		return false
	}
}

func boolConditionMatches(cond SegmentCondition, actual *bool) bool {
	if actual == nil {
		return false
	}
	expected, ok := cond.Value.(bool)
	if !ok {
		return false
	}

	switch cond.Operator {
	case SegmentOpEq:
		return *actual == expected
	case SegmentOpNeq:
		return *actual != expected
	default:
		return false
	}
}

func timeConditionMatches(cond SegmentCondition, actual *time.Time, now time.Time) bool {
	switch cond.Operator {
	case SegmentOpIsNull:
		return actual == nil
	case SegmentOpNotNull:
		return actual != nil
	}
	if actual == nil {
		return false
	}

	switch cond.Operator {
	case SegmentOpOlderThanDays:
		days, ok := toFloat(cond.Value)
		if !ok {
			return false
		}
		return actual.Before(now.Add(-time.Duration(days*24) * time.Hour))
	case SegmentOpWithinDays:
		days, ok := toFloat(cond.Value)
		if !ok {
			return false
		}
		return !actual.Before(now.Add(-time.Duration(days*24) * time.Hour))
	}

	expected, err := time.Parse(time.RFC3339, fmt.Sprintf("%v", cond.Value))
	if err != nil {
		return false
	}

	switch cond.Operator {
	case SegmentOpGt:
		return actual.After(expected)
	case SegmentOpGte:
		return !actual.Before(expected)
	case SegmentOpLt:
		return actual.Before(expected)
	case SegmentOpLte:
		return !actual.After(expected)
	default:
		return false
	}
}

// toFloat normalizes the numeric representations a condition value may
// arrive in (float64 from JSON, int from Go callers).
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func toStringSlice(v any) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return list, true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	default:
		return nil, false
	}
}
