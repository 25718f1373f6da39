package pkpass

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
)

const (
	PassFile      = "pass.json"
	ManifestFile  = "manifest.json"
	SignatureFile = "signature"
)

var ErrTemplateFields = errors.New("template storeCard needs a primary and a secondary field")

type Field struct {
	Key           string          `json:"key"`
	Label         string          `json:"label,omitempty"`
	Value         json.RawMessage `json:"value"`
	ChangeMessage string          `json:"changeMessage,omitempty"`
	CurrencyCode  string          `json:"currencyCode,omitempty"`
	TextAlignment string          `json:"textAlignment,omitempty"`
}

type Style struct {
	HeaderFields    []Field `json:"headerFields,omitempty"`
	PrimaryFields   []Field `json:"primaryFields,omitempty"`
	SecondaryFields []Field `json:"secondaryFields,omitempty"`
	AuxiliaryFields []Field `json:"auxiliaryFields,omitempty"`
	BackFields      []Field `json:"backFields,omitempty"`
}

func (s Style) clone() Style {
	cp := func(f []Field) []Field { return append([]Field(nil), f...) }
	return Style{
		HeaderFields:    cp(s.HeaderFields),
		PrimaryFields:   cp(s.PrimaryFields),
		SecondaryFields: cp(s.SecondaryFields),
		AuxiliaryFields: cp(s.AuxiliaryFields),
		BackFields:      cp(s.BackFields),
	}
}

type Barcode struct {
	Message         string `json:"message"`
	Format          string `json:"format"`
	MessageEncoding string `json:"messageEncoding"`
	AltText         string `json:"altText,omitempty"`
}

// Overlay holds the values written over the template for one pass.
type Overlay struct {
	PassTypeID          string
	TeamID              string
	SerialNumber        string
	AuthenticationToken string
	WebServiceURL       string
	Barcode             BarcodePayload
	Balance             decimal.Decimal
	Name                string
}

// Template is the pass-type artwork plus pass.json. It is read-only after
// loading and can be shared between requests.
type Template struct {
	base      map[string]json.RawMessage
	storeCard Style
	barcode   Barcode
	assets    map[string][]byte
}

// LoadTemplate reads a template directory. Files from an earlier signing
// (manifest.json, signature) are ignored.
func LoadTemplate(dir string) (*Template, error) {
	files, err := readBundleDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", dir, err)
	}
	passJSON, ok := files[PassFile]
	if !ok {
		return nil, fmt.Errorf("template %s has no %s", dir, PassFile)
	}
	delete(files, PassFile)
	return ParseTemplate(passJSON, files)
}

// readBundleDir loads every file under dir keyed by its slash-separated
// relative name, skipping signing output and finder litter.
func readBundleDir(dir string) (map[string][]byte, error) {
	files := make(map[string][]byte)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if name == ManifestFile || name == SignatureFile || filepath.Base(name) == ".DS_Store" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[name] = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func ParseTemplate(passJSON []byte, assets map[string][]byte) (*Template, error) {
	t := &Template{
		base:   make(map[string]json.RawMessage),
		assets: make(map[string][]byte, len(assets)),
		barcode: Barcode{
			Format:          "PKBarcodeFormatQR",
			MessageEncoding: "iso-8859-1",
		},
	}
	if err := json.Unmarshal(passJSON, &t.base); err != nil {
		return nil, fmt.Errorf("parse %s: %w", PassFile, err)
	}

	raw, ok := t.base["storeCard"]
	if !ok {
		return nil, ErrTemplateFields
	}
	if err := json.Unmarshal(raw, &t.storeCard); err != nil {
		return nil, fmt.Errorf("parse storeCard: %w", err)
	}
	if len(t.storeCard.PrimaryFields) == 0 || len(t.storeCard.SecondaryFields) == 0 {
		return nil, ErrTemplateFields
	}

	if raw, ok := t.base["barcode"]; ok {
		if err := json.Unmarshal(raw, &t.barcode); err != nil {
			return nil, fmt.Errorf("parse barcode: %w", err)
		}
	}

	for name, data := range assets {
		t.assets[name] = data
	}
	return t, nil
}

// Render produces pass.json for o. Keys are emitted in sorted order, so the
// same template and overlay always give the same bytes.
func (t *Template) Render(o Overlay) ([]byte, error) {
	doc := make(map[string]interface{}, len(t.base)+8)
	for k, v := range t.base {
		doc[k] = v
	}

	doc["passTypeIdentifier"] = o.PassTypeID
	if o.TeamID != "" {
		doc["teamIdentifier"] = o.TeamID
	}
	doc["serialNumber"] = o.SerialNumber
	doc["authenticationToken"] = o.AuthenticationToken
	doc["webServiceURL"] = o.WebServiceURL

	barcode := t.barcode
	barcode.Message = o.Barcode.Encode()
	doc["barcode"] = barcode
	doc["barcodes"] = []Barcode{barcode}

	style := t.storeCard.clone()
	style.PrimaryFields[0].Value = json.RawMessage(o.Balance.StringFixed(2))
	name, err := json.Marshal(o.Name)
	if err != nil {
		return nil, err
	}
	style.SecondaryFields[0].Value = name
	doc["storeCard"] = style

	return json.MarshalIndent(doc, "", "  ")
}

// NewBundle renders o and returns the files to be signed.
func (t *Template) NewBundle(o Overlay) (*Bundle, error) {
	passJSON, err := t.Render(o)
	if err != nil {
		return nil, err
	}

	files := make(map[string][]byte, len(t.assets)+1)
	for name, data := range t.assets {
		files[name] = data
	}
	files[PassFile] = passJSON
	return &Bundle{files: files}, nil
}
