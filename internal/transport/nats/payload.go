package nats

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/abgdnv/productcatalog/internal/service"
)

// ID is a product id that accepts a JSON number or a numeric string.
type ID int64

func (id *ID) UnmarshalJSON(b []byte) error {
	raw := string(b)
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid product id %s", string(b))
	}
	*id = ID(v)
	return nil
}

type idRequest struct {
	ID ID `json:"id"`
}

type idsRequest struct {
	IDs []ID `json:"ids"`
}

type pageRequest struct {
	Page  *int32 `json:"page"`
	Limit *int32 `json:"limit"`
}

type updateRequest struct {
	ID        ID       `json:"id"`
	Name      *string  `json:"name"`
	Price     *float64 `json:"price"`
	Available *bool    `json:"available"`
}

func (r updateRequest) toDto() service.ProductUpdateDto {
	id := int64(r.ID)
	return service.ProductUpdateDto{
		ID:        &id,
		Name:      r.Name,
		Price:     r.Price,
		Available: r.Available,
	}
}

// messageReply is the informational reply of update_product for an unknown id.
type messageReply struct {
	Message string `json:"message"`
}

// errorBody is the JSON body sent along with the service error headers.
type errorBody struct {
	Status           int               `json:"status"`
	Message          string            `json:"message"`
	Missing          []int64           `json:"missing,omitempty"`
	ValidationErrors map[string]string `json:"validation_errors,omitempty"`
}

// rpcError is a request error detected by the transport itself.
type rpcError struct {
	status           int
	message          string
	validationErrors map[string]string
}

func (e *rpcError) Error() string {
	return e.message
}

func badRequest(format string, args ...any) error {
	return &rpcError{status: http.StatusBadRequest, message: fmt.Sprintf(format, args...)}
}

func decode(data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return badRequest("request body is empty")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	return nil
}

// decodeOptional leaves v untouched for an empty body.
func decodeOptional(data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return decode(data, v)
}

func decodeID(data []byte) (int64, error) {
	var req idRequest
	if err := decode(data, &req); err != nil {
		return 0, err
	}
	if req.ID <= 0 {
		return 0, badRequest("id must be a positive integer")
	}
	return int64(req.ID), nil
}

// decodeIDs accepts a bare array of ids or an object with an ids field.
func decodeIDs(data []byte) ([]int64, error) {
	trimmed := bytes.TrimSpace(data)
	var raw []ID
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := decode(trimmed, &raw); err != nil {
			return nil, err
		}
	} else {
		var req idsRequest
		if err := decode(trimmed, &req); err != nil {
			return nil, err
		}
		raw = req.IDs
	}

	ids := make([]int64, len(raw))
	for i, id := range raw {
		if id <= 0 {
			return nil, badRequest("id must be a positive integer: %d", id)
		}
		ids[i] = int64(id)
	}
	return ids, nil
}

// positiveOrDefault returns def for a missing value and rejects explicit non-positive ones.
func positiveOrDefault(key string, value *int32, def int32) (int32, error) {
	if value == nil {
		return def, nil
	}
	if *value <= 0 {
		return 0, badRequest("%s must be a positive integer", key)
	}
	return *value, nil
}

func marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}
