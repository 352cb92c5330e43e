package repository

import (
	"fmt"
	"reflect"

	"coop-ledger/internal/pkg/apperrors"

	"go.mongodb.org/mongo-driver/bson"
)

var queryOperators = map[string]string{
	"==":     "$eq",
	"!=":     "$ne",
	"<":      "$lt",
	"<=":     "$lte",
	">":      "$gt",
	">=":     "$gte",
	"in":     "$in",
	"not-in": "$nin",
}

// BuildFilter translates a field/operator/value comparison into a Mongo filter.
func BuildFilter(field, op string, value interface{}) (bson.M, error) {
	if field == "" {
		return nil, apperrors.NewValidationError("field", "is required")
	}
	mongoOp, ok := queryOperators[op]
	if !ok {
		return nil, apperrors.NewValidationError("op", fmt.Sprintf("unsupported operator %q", op))
	}
	if mongoOp == "$in" || mongoOp == "$nin" {
		if value == nil {
			return nil, apperrors.NewValidationError("value", op+" requires a list")
		}
		kind := reflect.TypeOf(value).Kind()
		if kind != reflect.Slice && kind != reflect.Array {
			return nil, apperrors.NewValidationError("value", op+" requires a list")
		}
	}
	if mongoOp == "$eq" {
		return bson.M{field: value}, nil
	}
	return bson.M{field: bson.M{mongoOp: value}}, nil
}
