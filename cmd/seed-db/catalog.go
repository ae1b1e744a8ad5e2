package main

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
)

type catalogCategory struct {
	Name        string
	Description string
	Products    []catalogProduct
}

type catalogProduct struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
}

// readCatalog loads a catalog file, transparently decompressing ".gz" files.
func readCatalog(path string) ([]catalogCategory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(path, ".gz") {
		zr, err := pgzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip stream")
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read catalog")
	}
	return parseCatalog(data)
}

// parseCatalog decodes {"categories":[{"name","description","products":[...]}]}.
func parseCatalog(data []byte) ([]catalogCategory, error) {
	var out []catalogCategory
	d := jx.DecodeBytes(bytes.TrimSpace(data))
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "categories" {
			return d.Skip()
		}
		return d.Arr(func(d *jx.Decoder) error {
			var c catalogCategory
			if err := d.Obj(func(d *jx.Decoder, key string) (err error) {
				switch key {
				case "name":
					c.Name, err = d.Str()
				case "description":
					c.Description, err = d.Str()
				case "products":
					err = d.Arr(func(d *jx.Decoder) error {
						p, err := parseProduct(d)
						if err != nil {
							return err
						}
						c.Products = append(c.Products, p)
						return nil
					})
				default:
					err = d.Skip()
				}
				return err
			}); err != nil {
				return err
			}
			if c.Name == "" {
				return errors.Errorf("category #%d has no name", len(out))
			}
			out = append(out, c)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	return out, nil
}

func parseProduct(d *jx.Decoder) (catalogProduct, error) {
	var p catalogProduct
	err := d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "name":
			p.Name, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		case "price":
			var n jx.Num
			if n, err = d.Num(); err == nil {
				p.Price, err = decimal.NewFromString(n.String())
			}
			if err == nil {
				err = product.ValidatePrice(p.Price)
			}
		case "stock":
			p.Stock, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	return p, err
}
