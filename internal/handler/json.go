package handler

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/apperr"
)

const maxBodySize = 1 << 20

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// readObject decodes the request body as a JSON object, calling field for
// every key. Errors carrying a field are returned as is; any other decoding
// failure is reported against "body".
func readObject(r *http.Request, field func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	if len(body) > maxBodySize {
		return apperr.Invalid("body", "request body too large")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return apperr.Invalid("body", "request body is required")
	}
	if err := jx.DecodeBytes(body).Obj(field); err != nil {
		if apperr.Field(err) != "" {
			return err
		}
		return apperr.Invalid("body", "malformed JSON: "+err.Error())
	}
	return nil
}

func decodeString(d *jx.Decoder, field string) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return "", apperr.Invalid(field, "must be a string")
	}
	return s, nil
}

func decodeInt64(d *jx.Decoder, field string) (int64, error) {
	v, err := d.Int64()
	if err != nil {
		return 0, apperr.Invalid(field, "must be an integer")
	}
	return v, nil
}

func decodeInt(d *jx.Decoder, field string) (int, error) {
	v, err := d.Int()
	if err != nil {
		return 0, apperr.Invalid(field, "must be an integer")
	}
	return v, nil
}

// decodeMoney accepts a JSON number or a numeric string.
func decodeMoney(d *jx.Decoder, field string) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, apperr.Invalid(field, "must be a number")
		}
		raw = s
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, apperr.Invalid(field, "must be a number")
		}
		raw = n.String()
	default:
		return decimal.Decimal{}, apperr.Invalid(field, "must be a number")
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, apperr.Invalid(field, "must be a number")
	}
	return v, nil
}

func encodeMoney(e *jx.Encoder, v decimal.Decimal) {
	e.Num(jx.Num(v.StringFixed(2)))
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339Nano))
}

// pathID parses a positive int64 URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid(name, "must be a positive integer")
	}
	return id, nil
}
