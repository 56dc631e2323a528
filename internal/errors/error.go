// Package errors provides custom error types for product-related operations.
package errors

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrProductNotFound = errors.New("product not found")
var ErrInvalidProducts = errors.New("some products are not valid")

// NotFoundError reports that no available product exists for ID.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product with id %d not found", e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrProductNotFound
}

// InvalidProductsError reports the requested ids that have no backing record.
type InvalidProductsError struct {
	Missing []int64
}

func (e *InvalidProductsError) Error() string {
	ids := make([]string, len(e.Missing))
	for i, id := range e.Missing {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("%s: missing ids [%s]", ErrInvalidProducts, strings.Join(ids, ", "))
}

func (e *InvalidProductsError) Unwrap() error {
	return ErrInvalidProducts
}
