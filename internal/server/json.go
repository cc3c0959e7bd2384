package server

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads the body into dst. Numbers decoded into interface values
// stay json.Number so nothing is silently converted to float64.
func decodeJSON(c *gin.Context, dst any) error {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		return invalidRequestError()
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return invalidRequestError()
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for commands whose body may be omitted.
func decodeOptionalJSON(c *gin.Context, dst any) error {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		return invalidRequestError()
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	return decodeJSON(c, dst)
}

// parseMinorUnits accepts only a bare JSON integer. Fractional, exponent and
// quoted values are rejected so amounts never pass through floating point.
func parseMinorUnits(field string, raw json.RawMessage) (int64, error) {
	text := bytes.TrimSpace(raw)
	if len(text) == 0 || bytes.Equal(text, []byte("null")) {
		return 0, newValidationError(field, "required", field+" is required")
	}
	v, err := strconv.ParseInt(string(text), 10, 64)
	if err != nil {
		return 0, newValidationError(field, "invalid_integer_amount", field+" must be an integer amount in minor units")
	}
	return v, nil
}

func parseOptionalMinorUnits(field string, raw json.RawMessage) (*int64, error) {
	text := bytes.TrimSpace(raw)
	if len(text) == 0 || bytes.Equal(text, []byte("null")) {
		return nil, nil
	}
	v, err := parseMinorUnits(field, raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
